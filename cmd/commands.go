package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/xhad/advisor/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	heading = color.New(color.FgCyan, color.Bold).PrintfFunc()
	label   = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintfFunc()
)

// searchFlags are shared by search and export.
type searchFlags struct {
	limit      int
	supervisor string
	prodType   string
	quartile   string
	minImpact  string
	from       string
	to         string
}

func (f *searchFlags) register(fs *flag.FlagSet, defaultLimit int) {
	fs.IntVar(&f.limit, "limit", defaultLimit, "Maximum number of results")
	fs.StringVar(&f.supervisor, "supervisor", "", "Only this supervisor (exact name)")
	fs.StringVar(&f.prodType, "type", "", "Only this production type")
	fs.StringVar(&f.quartile, "quartile", "", "Only this SJR quartile (Q1-Q4)")
	fs.StringVar(&f.minImpact, "min-impact", "", "Minimum impact value")
	fs.StringVar(&f.from, "from", "", "Published on or after this date")
	fs.StringVar(&f.to, "to", "", "Published on or before this date")
}

func (f *searchFlags) filters() (models.FilterSet, error) {
	raw := map[string]any{}
	for key, value := range map[string]string{
		"supervisor":      f.supervisor,
		"production_type": f.prodType,
		"quartile":        f.quartile,
		"min_impact":      f.minImpact,
		"min_date":        f.from,
		"max_date":        f.to,
	} {
		if value != "" {
			raw[key] = value
		}
	}
	return models.ParseFilters(raw)
}

func parseSearch(name string, args []string, defaultLimit int) (*searchFlags, *flag.FlagSet, models.FilterSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	sf := &searchFlags{}
	sf.register(fs, defaultLimit)
	if err := fs.Parse(args); err != nil {
		return nil, nil, models.FilterSet{}, err
	}
	filters, err := sf.filters()
	return sf, fs, filters, err
}

func runSearch(ctx context.Context, a *app, args []string) error {
	sf, fs, filters, err := parseSearch("search", args, a.cfg.Search.DefaultLimit)
	if err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")

	var res *models.SearchResult
	err = withSpinner("🔍 Searching...", func() error {
		var err error
		res, err = a.engine.Search(ctx, query, sf.limit, filters)
		return err
	})
	if err != nil {
		return err
	}

	heading("\n%d results for %q\n\n", res.Total, res.Query)
	for i, r := range res.Results {
		printDocument(i+1, r.Document, r.Relevance)
	}
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf := &searchFlags{}
	sf.register(fs, a.cfg.Search.DefaultLimit)
	output := fs.String("o", "results.csv", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filters, err := sf.filters()
	if err != nil {
		return err
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *output, err)
	}
	defer f.Close()

	res, err := a.engine.Export(ctx, f, strings.Join(fs.Args(), " "), sf.limit, filters)
	if err != nil {
		return err
	}
	color.Green("✓ Exported %d results to %s\n", res.Total, *output)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	name := strings.Join(args, " ")
	p, err := a.engine.Profile(ctx, name)
	if err != nil {
		return err
	}

	heading("\n%s\n", p.Name)
	fmt.Printf("%s %d (research %d, projects %d, teaching %d)\n", label("Works:"), p.TotalWorks, p.Research, p.Projects, p.Teaching)
	if !p.Latest.IsZero() {
		fmt.Printf("%s %s\n", label("Latest:"), p.Latest.Format("2006-01-02"))
	}
	fmt.Printf("%s %s\n", label("Active years:"), joinInts(p.ActiveYears))
	fmt.Printf("%s %s\n", label("Categories:"), strings.Join(p.Categories, ", "))
	if len(p.Sources) > 0 {
		fmt.Printf("%s %s\n", label("Sources:"), strings.Join(p.Sources, ", "))
	}
	fmt.Printf("%s %s\n", label("Types:"), formatCounts(p.TypeCounts))

	heading("\nRecent works\n")
	for i, doc := range p.RecentWorks {
		printDocument(i+1, doc, -1)
	}
	return nil
}

func runStats(ctx context.Context, a *app, _ []string) error {
	st, err := a.engine.Stats(ctx)
	if err != nil {
		return err
	}

	heading("\nCorpus\n")
	fmt.Printf("%s %d\n", label("Documents:"), st.TotalDocuments)
	fmt.Printf("%s %d\n", label("Supervisors:"), st.TotalSupervisors)
	if len(st.Years) > 0 {
		fmt.Printf("%s %d-%d\n", label("Years:"), st.Years[len(st.Years)-1], st.Years[0])
	}
	fmt.Printf("%s %s\n", label("Types:"), formatCounts(st.TypeCounts))

	heading("\nTop categories\n")
	for _, c := range st.TopCategories {
		fmt.Printf("  %-40s %d\n", c.Label, c.Count)
	}
	fmt.Println(faint("\ncomputed %s", st.ComputedAt.Format("15:04:05")))
	return nil
}

func runTypes(ctx context.Context, a *app, _ []string) error {
	types, err := a.engine.ProductionTypes(ctx)
	if err != nil {
		return err
	}
	for _, t := range types {
		fmt.Printf("  %-40s %d\n", t.Label, t.Count)
	}
	return nil
}

func runSupervisors(ctx context.Context, a *app, _ []string) error {
	sups, err := a.engine.Supervisors(ctx)
	if err != nil {
		return err
	}
	for _, s := range sups {
		fmt.Printf("  %-40s %4d  %s\n", s.Name, s.TotalWorks, faint("%s", strings.Join(s.Categories, ", ")))
	}
	return nil
}

func runRecommend(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	limit := fs.Int("limit", 5, "Number of supervisors")
	student := registerStudent(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	profile, err := student()
	if err != nil {
		return err
	}

	var recs []models.Recommendation
	err = withSpinner("🎯 Ranking supervisors...", func() error {
		var err error
		recs, err = a.engine.Recommend(ctx, profile, *limit)
		return err
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		color.Yellow("No supervisor matched your profile.\n")
		return nil
	}

	for i, r := range recs {
		heading("\n%d. %s", i+1, r.Profile.Name)
		fmt.Printf("  %s\n", faint("score %.3f", r.Score))
		fmt.Printf("   relevance %.2f · areas %.2f · quality %.2f · %d matching works of %d\n",
			r.Relevance, r.CategoryOverlap, r.Quality, r.Matched, r.Profile.TotalWorks)
		if len(r.Profile.Categories) > 0 {
			fmt.Printf("   %s\n", faint("%s", strings.Join(r.Profile.Categories, ", ")))
		}
	}
	return nil
}

func runRanking(ctx context.Context, a *app, _ []string) error {
	rows, err := a.engine.RankAvailability(ctx)
	if err != nil {
		return err
	}

	colors := map[models.AvailabilityLabel]func(format string, a ...interface{}) string{
		models.AvailabilityHigh:   color.GreenString,
		models.AvailabilityMedium: color.YellowString,
		models.AvailabilityLow:    color.RedString,
	}
	for _, r := range rows {
		fmt.Printf("  %-40s %s  %d recent / %d total\n", r.Supervisor, colors[r.Label]("%-6s", r.Label), r.Recent, r.Total)
	}
	return nil
}

func runAnalyze(ctx context.Context, a *app, args []string) error {
	var analysis *models.SupervisorAnalysis
	err := withSpinner("🤖 Analysing...", func() error {
		var err error
		analysis, err = a.engine.AnalyzeSupervisor(ctx, strings.Join(args, " "))
		return err
	})
	if err != nil {
		return err
	}

	heading("\n%s (%d works)\n", analysis.Supervisor, analysis.TotalWorks)
	if analysis.Style != "" {
		fmt.Printf("%s %s\n", label("Style:"), analysis.Style)
		fmt.Printf("%s %s\n", label("Productivity:"), analysis.Productivity)
		fmt.Printf("%s %s\n", label("Main areas:"), strings.Join(analysis.MainAreas, ", "))
		fmt.Printf("%s %s\n", label("Strengths:"), strings.Join(analysis.Strengths, ", "))
		fmt.Printf("%s %s\n", label("Fits:"), analysis.RecommendedWork)
	}
	fmt.Printf("\n%s\n", analysis.Summary)
	return nil
}

func runIdeas(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("ideas", flag.ContinueOnError)
	student := registerStudent(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	profile, err := student()
	if err != nil {
		return err
	}

	var ideas *models.ProjectIdeas
	err = withSpinner("💡 Generating ideas...", func() error {
		var err error
		ideas, err = a.engine.GenerateIdeas(ctx, profile)
		return err
	})
	if err != nil {
		return err
	}

	if len(ideas.Ideas) == 0 {
		fmt.Println(ideas.Raw)
		return nil
	}
	for i, idea := range ideas.Ideas {
		heading("\n%d. %s\n", i+1, idea.Title)
		fmt.Println(idea.Description)
		fmt.Println(faint("%s · %s · %s", idea.Area, strings.Join(idea.Technologies, ", "), idea.Difficulty))
	}
	return nil
}

// registerStudent adds the student profile flags to fs. A -profile file is read
// first and the individual flags override it.
func registerStudent(fs *flag.FlagSet) func() (models.StudentProfile, error) {
	path := fs.String("profile", "", "Student profile YAML file")
	degree := fs.String("degree", "", "Degree")
	year := fs.Int("year", 0, "Academic year")
	interests := fs.String("interests", "", "Interests")
	skills := fs.String("skills", "", "Skills")
	areas := fs.String("areas", "", "Preferred areas, comma separated")

	return func() (models.StudentProfile, error) {
		var p models.StudentProfile
		if *path != "" {
			data, err := os.ReadFile(*path)
			if err != nil {
				return p, fmt.Errorf("error reading profile: %w", err)
			}
			if err := yaml.Unmarshal(data, &p); err != nil {
				return p, fmt.Errorf("error parsing profile: %w", err)
			}
		}
		if *degree != "" {
			p.Degree = *degree
		}
		if *year != 0 {
			p.Year = *year
		}
		if *interests != "" {
			p.Interests = *interests
		}
		if *skills != "" {
			p.Skills = *skills
		}
		if *areas != "" {
			p.PreferredAreas = *areas
		}
		return p, nil
	}
}

func printDocument(n int, doc models.Document, relevance float64) {
	fmt.Printf("%s %s\n", color.CyanString("%2d.", n), doc.Title)

	meta := []string{doc.Supervisor}
	if doc.HasDate() {
		meta = append(meta, doc.Date.Format("2006-01-02"))
	}
	if doc.ProductionType != "" {
		meta = append(meta, doc.ProductionType)
	}
	if doc.Quartile != "" {
		meta = append(meta, doc.Quartile)
	}
	if doc.Impact != nil {
		meta = append(meta, "IF "+strconv.FormatFloat(*doc.Impact, 'f', -1, 64))
	}
	if relevance >= 0 {
		meta = append(meta, fmt.Sprintf("relevance %.3f", relevance))
	}
	fmt.Printf("    %s\n", faint("%s", strings.Join(meta, " · ")))
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}
