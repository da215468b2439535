package textutil

import (
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, strips diacritics, turns punctuation into spaces
// and collapses whitespace. "María  López-García" becomes "maria lopez garcia".
// Every name and category comparison in the module goes through here.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	lowered := strings.ToLower(s)
	// Transformers carry state, so the chain is built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return CollapseSpaces(b.String())
}

// CollapseSpaces replaces runs of whitespace with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SameName reports whether two names are equal once normalised.
func SameName(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// ContainsPhrase reports whether the normalised phrase occurs in the normalised
// text on word boundaries. Both arguments must already be normalised.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// Tokens splits s into normalised words, dropping stopwords and words shorter
// than minLen runes.
func Tokens(s string, minLen int) []string {
	var out []string
	for _, w := range strings.Fields(Normalize(s)) {
		if len([]rune(w)) < minLen || isStopword(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// SplitList breaks a free-text list ("IA, robótica; visión") into normalised items.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '\n' || r == '|'
	})

	var out []string
	seen := make(map[string]bool)
	for _, p := range parts {
		n := Normalize(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01",
	"2006",
}

// ParseDate accepts the date shapes found in the publication sources.
// Placeholders such as "-" or "N/A" are reported as missing.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "n/a", "na", "none", "null":
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StripHTML returns the visible text of an HTML fragment. Plain text passes through.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

// Snippet returns at most max runes of the visible text of s, cut on a word
// boundary when one is close enough, with an ellipsis when shortened.
func Snippet(s string, max int) string {
	text := CollapseSpaces(StripHTML(s))
	if max <= 0 {
		return text
	}

	r := []rune(text)
	if len(r) <= max {
		return text
	}

	cut := string(r[:max])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "…"
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Common English and Spanish stopwords
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "has": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "will": {}, "with": {},
	"de": {}, "del": {}, "la": {}, "las": {}, "el": {}, "los": {}, "y": {}, "en": {},
	"para": {}, "con": {}, "por": {}, "un": {}, "una": {}, "sobre": {}, "que": {},
}
