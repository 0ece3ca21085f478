package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors used in terminal output.
type Theme struct {
	Primary lipgloss.Color // Header and accent color
	Dim     lipgloss.Color // Secondary text color
	Alert   lipgloss.Color // Error color
}

// DefaultTheme is the default green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Alert:   lipgloss.Color("#ff5f5f"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Header lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
		Error:  lipgloss.NewStyle().Foreground(t.Alert),
	}
}

// PlainStyles renders text unchanged.
var PlainStyles = Styles{
	Header: lipgloss.NewStyle(),
	Dim:    lipgloss.NewStyle(),
	Error:  lipgloss.NewStyle(),
}

// DefaultStyles is derived from DefaultTheme.
var DefaultStyles = NewStyles(DefaultTheme)
