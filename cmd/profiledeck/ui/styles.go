// Package ui renders the profile collection for the terminal: static tables
// for the one-shot commands and a bubbletea model for the live browser.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	LightForeground = lipgloss.Color("#1b2430")
	LightPrimary    = lipgloss.Color("#1f4e79")
	LightMuted      = lipgloss.Color("#7a8591")

	DarkForeground = lipgloss.Color("#e8ecef")
	DarkPrimary    = lipgloss.Color("#7fb3e0")
	DarkMuted      = lipgloss.Color("#6b7785")

	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#43a047")
	Warning     = lipgloss.Color("#ffb300")
)

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{Foreground: LightForeground, Primary: LightPrimary, Muted: LightMuted}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{Foreground: DarkForeground, Primary: DarkPrimary, Muted: DarkMuted, IsDark: true}
}

// DetectTheme guesses the terminal background from COLORFGBG, falling back
// to PROFILEDECK_DARK_MODE and then the light theme.
func DetectTheme() Theme {
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	if os.Getenv("PROFILEDECK_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	Title  lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style
	Label  lipgloss.Style
	Footer lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		Body:  lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted: lipgloss.NewStyle().Foreground(theme.Muted),
		Bold:  lipgloss.NewStyle().Foreground(theme.Foreground).Bold(true),
		Label: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Width(14),
		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Success: lipgloss.NewStyle().Foreground(Success),
		Error:   lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(Warning),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
