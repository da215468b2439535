package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/advisor/pkg/textutil"
)

// Quartiles is the closed set of accepted quartile labels.
var Quartiles = []string{"Q1", "Q2", "Q3", "Q4"}

// FilterSet constrains a search. Zero values mean "no constraint".
type FilterSet struct {
	Supervisor     string
	ProductionType string
	Quartile       string
	MinImpact      *float64
	MinDate        *time.Time
	MaxDate        *time.Time
}

// NativeFilter is the subset of a FilterSet a vector index enforces during retrieval.
type NativeFilter struct {
	Supervisor     string
	ProductionType string
}

// IsZero reports whether the filter places no constraint.
func (f NativeFilter) IsZero() bool {
	return f.Supervisor == "" && f.ProductionType == ""
}

// Native returns the index-enforceable part of the set.
func (f FilterSet) Native() NativeFilter {
	return NativeFilter{Supervisor: f.Supervisor, ProductionType: f.ProductionType}
}

// HasPostFilters reports whether any constraint must be checked after retrieval.
func (f FilterSet) HasPostFilters() bool {
	return f.Quartile != "" || f.MinImpact != nil || f.MinDate != nil || f.MaxDate != nil
}

// NormalizeQuartile maps "q1", " Q1 " and similar onto the canonical label.
// The second return is false for anything outside Q1..Q4.
func NormalizeQuartile(s string) (string, bool) {
	q := strings.ToUpper(strings.TrimSpace(s))
	if len(q) == 1 && q[0] >= '1' && q[0] <= '4' {
		q = "Q" + q
	}
	for _, known := range Quartiles {
		if q == known {
			return q, true
		}
	}
	return "", false
}

// ParseFilters converts a loosely typed request map into a FilterSet.
// Unknown keys and malformed values are rejected with ErrInvalidQuery.
func ParseFilters(raw map[string]any) (FilterSet, error) {
	var fs FilterSet

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if value == nil {
			continue
		}

		switch key {
		case "supervisor", "profesor":
			s, err := stringValue(key, value)
			if err != nil {
				return FilterSet{}, err
			}
			fs.Supervisor = s

		case "production_type", "tipo_produccion":
			s, err := stringValue(key, value)
			if err != nil {
				return FilterSet{}, err
			}
			fs.ProductionType = s

		case "quartile", "q_sjr":
			s, err := stringValue(key, value)
			if err != nil {
				return FilterSet{}, err
			}
			if s == "" {
				continue
			}
			q, ok := NormalizeQuartile(s)
			if !ok {
				return FilterSet{}, fmt.Errorf("%w: %s must be one of %s", ErrInvalidQuery, key, strings.Join(Quartiles, ", "))
			}
			fs.Quartile = q

		case "min_if_sjr", "min_impact":
			f, err := floatValue(key, value)
			if err != nil {
				return FilterSet{}, err
			}
			fs.MinImpact = &f

		case "min_date":
			t, err := dateValue(key, value)
			if err != nil {
				return FilterSet{}, err
			}
			fs.MinDate = t

		case "max_date":
			t, err := dateValue(key, value)
			if err != nil {
				return FilterSet{}, err
			}
			fs.MaxDate = t

		case "fecha_range":
			r, ok := value.(map[string]any)
			if !ok {
				return FilterSet{}, fmt.Errorf("%w: fecha_range must be an object", ErrInvalidQuery)
			}
			if v, ok := r["inicio"]; ok && v != nil {
				t, err := dateValue("fecha_range.inicio", v)
				if err != nil {
					return FilterSet{}, err
				}
				fs.MinDate = t
			}
			if v, ok := r["fin"]; ok && v != nil {
				t, err := dateValue("fecha_range.fin", v)
				if err != nil {
					return FilterSet{}, err
				}
				fs.MaxDate = t
			}

		default:
			return FilterSet{}, fmt.Errorf("%w: unsupported filter %q", ErrInvalidQuery, key)
		}
	}

	return fs, nil
}

func stringValue(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidQuery, key)
	}
	return strings.TrimSpace(s), nil
}

func floatValue(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(n, ",", ".")), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be numeric", ErrInvalidQuery, key)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s must be numeric", ErrInvalidQuery, key)
}

func dateValue(key string, v any) (*time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return &d, nil
	case string:
		if strings.TrimSpace(d) == "" {
			return nil, nil
		}
		t, ok := textutil.ParseDate(d)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a date", ErrInvalidQuery, key)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s must be a date string", ErrInvalidQuery, key)
}
