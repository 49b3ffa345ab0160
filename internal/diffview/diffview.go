// Package diffview renders unified diffs of assistant configs for the terminal.
package diffview

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"
)

// Unified returns a unified diff of a against b, or "" when they are equal.
func Unified(a, b, from, to string) (string, error) {
	if a == b {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: from,
		ToFile:   to,
		Context:  3,
	})
}

// splitLines keeps line endings. A final line without one gets a newline so
// the diff stays line-oriented.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}
	return lines
}

// Colorize paints file headers magenta, hunk headers cyan, removals red and
// additions green. It returns diff unchanged when enabled is false.
func Colorize(diff string, enabled bool) string {
	if !enabled || diff == "" {
		return diff
	}
	lines := strings.SplitAfter(diff, "\n")
	var out strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		if color := lineColor(body); color != nil {
			body = termenv.String(body).Foreground(color).String()
		}
		out.WriteString(body)
		out.WriteString(nl)
	}
	return out.String()
}

func lineColor(line string) termenv.Color {
	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		return termenv.ANSIMagenta
	case strings.HasPrefix(line, "@@"):
		return termenv.ANSICyan
	case strings.HasPrefix(line, "-"):
		return termenv.ANSIRed
	case strings.HasPrefix(line, "+"):
		return termenv.ANSIGreen
	default:
		return nil
	}
}

type fdWriter interface {
	Fd() uintptr
}

// ShouldColor resolves an output.color mode ("auto", "always", "never") for w.
// Auto honours NO_COLOR, CLICOLOR=0 and CLICOLOR_FORCE before checking for a
// terminal.
func ShouldColor(mode string, w io.Writer) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "never":
		return false
	case "always":
		return true
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if _, exists := os.LookupEnv("CLICOLOR_FORCE"); exists {
		return true
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Width reports the terminal width of w, or fallback when w is not a terminal.
func Width(w io.Writer, fallback int) int {
	f, ok := w.(fdWriter)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Preview returns the first line of text truncated to width display cells.
func Preview(text string, width int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimRight(line, "\r")
	if width <= 0 {
		return line
	}
	return ansi.Truncate(line, width, "…")
}
