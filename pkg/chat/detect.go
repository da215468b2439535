package chat

import (
	"sort"
	"strings"

	"github.com/xhad/advisor/pkg/textutil"
)

type rosterEntry struct {
	name   string
	key    string
	tokens []string
}

// DetectSupervisor finds the supervisor a message talks about. Names are tried
// longest first as whole phrases, so a full name beats any shorter name it
// contains. Failing that, a name of two or more words matches when at least
// two of its words longer than three letters appear in the message. At most
// one name is returned.
func DetectSupervisor(message string, roster []string) (string, bool) {
	text := textutil.Normalize(message)
	if text == "" || len(roster) == 0 {
		return "", false
	}

	entries := make([]rosterEntry, 0, len(roster))
	for _, name := range roster {
		key := textutil.Normalize(name)
		if key == "" {
			continue
		}
		entries = append(entries, rosterEntry{name: name, key: key, tokens: strings.Fields(key)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if len(a.tokens) != len(b.tokens) {
			return len(a.tokens) > len(b.tokens)
		}
		if len(a.key) != len(b.key) {
			return len(a.key) > len(b.key)
		}
		return a.name < b.name
	})

	for _, e := range entries {
		if textutil.ContainsPhrase(text, e.key) {
			return e.name, true
		}
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		words[w] = true
	}

	best, bestCount := "", 0
	for _, e := range entries {
		if len(e.tokens) < 2 {
			continue
		}
		count := 0
		for _, tok := range e.tokens {
			if len([]rune(tok)) > 3 && words[tok] {
				count++
			}
		}
		if count >= 2 && count > bestCount {
			best, bestCount = e.name, count
		}
	}

	return best, best != ""
}
