package textutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/advisor/pkg/textutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"María López", "maria lopez"},
		{"  MARIA   LOPEZ ", "maria lopez"},
		{"José-Ángel Núñez", "jose angel nunez"},
		{"Visión por Computador (IA)", "vision por computador ia"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, textutil.Normalize(tt.in))
		})
	}
}

func TestSameName(t *testing.T) {
	assert.True(t, textutil.SameName("María López", "maria lopez"))
	assert.True(t, textutil.SameName("ANA RUIZ", "Ana  Ruíz"))
	assert.False(t, textutil.SameName("Ana Ruiz", "Ana Ruiz Gil"))
	assert.False(t, textutil.SameName("", ""))
}

func TestContainsPhrase(t *testing.T) {
	text := textutil.Normalize("¿Qué investiga Ana Ruiz últimamente?")
	assert.True(t, textutil.ContainsPhrase(text, "ana ruiz"))
	assert.False(t, textutil.ContainsPhrase(text, "ana ruizg"))
	assert.False(t, textutil.ContainsPhrase(text, "na ruiz"))
	assert.False(t, textutil.ContainsPhrase(text, ""))
}

func TestTokensAndSplitList(t *testing.T) {
	assert.Equal(t, []string{"machine", "learning", "robotica"}, textutil.Tokens("Machine learning y robótica", 3))
	assert.Equal(t, []string{"ia", "robotica", "vision artificial"}, textutil.SplitList("IA, Robótica; visión artificial, ia"))
	assert.Empty(t, textutil.SplitList(" , ;"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05/03/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-03", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2019", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"N/A", time.Time{}, false},
		{"-", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := textutil.ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "Deep learning for robots", textutil.Snippet("<p>Deep <i>learning</i> for robots</p>", 100))
	assert.Equal(t, "short", textutil.Snippet("short", 0))

	long := "alpha beta gamma delta epsilon zeta eta theta"
	got := textutil.Snippet(long, 20)
	assert.Equal(t, "alpha beta gamma…", got)
	assert.LessOrEqual(t, len([]rune(got)), 21)
}
