// Package ui holds the terminal formatting used by the vault CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...any) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.Sprint(fmt.Sprintf(format, a...))
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// NO_COLOR (https://no-color.org/) wins over terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands. Backticks without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values such as secret names. Single quotes without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Secret formats the recovery phrase so it stands out once.
	Secret = Formatter{color.New(color.FgHiWhite, color.Bold), "", ""}

	// Muted formats secondary text. Parentheses without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// Status marks: "✓", "✗", "!".
func OK() string   { return Success.Sprint("✓") }
func Fail() string { return Error.Sprint("✗") }
func Warn() string { return Warning.Sprint("!") }
