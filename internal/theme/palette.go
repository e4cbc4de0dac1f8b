package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/plantdash/plantdash/internal/session"
)

// Palette styles CLI output
type Palette struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
	Good  lipgloss.Style
}

var (
	lightPalette = Palette{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1F4E79")),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color("#404040")),
		Value: lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
		Error: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B00020")),
		Good:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2E7D32")),
	}

	darkPalette = Palette{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8AB4F8")),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color("#BDBDBD")),
		Value: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#757575")),
		Error: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F28B82")),
		Good:  lipgloss.NewStyle().Foreground(lipgloss.Color("#81C995")),
	}
)

// PaletteFor picks the palette following the same rule as the web root class
func PaletteFor(s session.State) Palette {
	if DarkEnabled(s) {
		return darkPalette
	}
	return lightPalette
}
