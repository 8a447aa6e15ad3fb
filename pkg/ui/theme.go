package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme holds the colors and pre-built styles of the grid view.
type Theme struct {
	Renderer *lipgloss.Renderer
	Dark     bool

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	Base      lipgloss.Style
	Selected  lipgloss.Style
	Header    lipgloss.Style
	Title     lipgloss.Style
	Marker    lipgloss.Style
	Separator lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Dirty     lipgloss.Style
	Modal     lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,
		Dark:     r.HasDarkBackground(),

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Success:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"}).
		Bold(true)
	t.Header = r.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		Underline(true)
	t.Title = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Marker = r.NewStyle().Foreground(t.Primary)
	t.Separator = r.NewStyle().Foreground(t.Border)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	t.Error = r.NewStyle().Foreground(t.Danger).Bold(true)
	t.Dirty = r.NewStyle().Foreground(ThemeFg("#FFB86C")).Bold(true)
	t.Modal = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2)

	return t
}

// NewTheme returns DefaultTheme forced to a light or dark background.
// Any other name keeps the renderer's detection.
func NewTheme(r *lipgloss.Renderer, name string) Theme {
	switch name {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return DefaultTheme(r)
}
