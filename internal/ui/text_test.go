package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestFormatterWithColor(t *testing.T) {
	unsetNoColor(t)
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	got := Code.Sprint("vault unlock")
	require.NotContains(t, got, "`")
	require.Contains(t, got, "\x1b[")
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"code adds backticks", Code, "vault unlock", "`vault unlock`"},
		{"path unchanged", Path, "~/.kube/config", "~/.kube/config"},
		{"highlight adds quotes", Highlight, "prod-db", "'prod-db'"},
		{"muted adds parentheses", Muted, "inactive", "(inactive)"},
		{"success unchanged", Success, "done", "done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.formatter.Sprint(tt.input))
		})
	}

	require.Equal(t, "'3 secrets'", Highlight.Sprintf("%d secrets", 3))
	require.Equal(t, "✓", OK())
}

func TestEnsureNewline(t *testing.T) {
	require.Equal(t, "\n", EnsureNewline(""))
	require.Equal(t, "a\n", EnsureNewline("a"))
	require.Equal(t, "a\n", EnsureNewline("a\n"))
	require.False(t, strings.HasSuffix(EnsureNewline("a\n"), "\n\n"))
}

// unsetNoColor removes NO_COLOR for the test; t.Setenv restores the old value afterwards.
func unsetNoColor(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "")
	require.NoError(t, os.Unsetenv("NO_COLOR"))
}
