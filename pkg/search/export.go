package search

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xhad/advisor/internal/models"
)

var exportHeader = []string{
	"Title", "Supervisor", "Date", "Production Type", "Categories",
	"Impact", "Quartile", "Relevance", "Source",
}

// ExportCSV writes a search result as a spreadsheet-friendly CSV (UTF-8 with BOM).
func ExportCSV(w io.Writer, result *models.SearchResult) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	for _, r := range result.Results {
		date := ""
		if r.HasDate() {
			date = r.Date.Format("2006-01-02")
		}
		impact := ""
		if r.Impact != nil {
			impact = strconv.FormatFloat(*r.Impact, 'f', -1, 64)
		}

		record := []string{
			r.Title,
			r.Supervisor,
			date,
			r.ProductionType,
			strings.Join(r.Categories, "; "),
			impact,
			r.Quartile,
			strconv.FormatFloat(r.Relevance, 'f', 3, 64),
			r.Source,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
