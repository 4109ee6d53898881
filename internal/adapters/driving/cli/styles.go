package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// outputStyles styles search results.
type outputStyles struct {
	Rank    lipgloss.Style
	Title   lipgloss.Style
	Path    lipgloss.Style
	Score   lipgloss.Style
	Snippet lipgloss.Style
}

// plainStyles renders without escape sequences.
func plainStyles() outputStyles {
	return outputStyles{
		Rank:    lipgloss.NewStyle(),
		Title:   lipgloss.NewStyle(),
		Path:    lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Snippet: lipgloss.NewStyle(),
	}
}

// colourStyles uses the recall palette.
func colourStyles() outputStyles {
	return outputStyles{
		Rank:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		Title:   lipgloss.NewStyle().Bold(true),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Snippet: lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
	}
}

// stylesFor picks colour styles only when w is a terminal.
func stylesFor(w io.Writer) outputStyles {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return colourStyles()
	}
	return plainStyles()
}
