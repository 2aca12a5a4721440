package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/burn/internal/config"
)

// palette holds the TUI colors. Defaults are Catppuccin Mocha.
type palette struct {
	green, blue, yellow, red, teal, mauve lipgloss.Color
	muted, dim, bright                    lipgloss.Color
}

func defaultPalette() palette {
	return palette{
		green:  "#a6e3a1",
		blue:   "#89b4fa",
		yellow: "#f9e2af",
		red:    "#f38ba8",
		teal:   "#94e2d5",
		mauve:  "#cba6f7",
		muted:  "#5a6278",
		dim:    "#3a4055",
		bright: "#cdd6f4",
	}
}

// withOverrides returns p with every color set in tc replaced.
func (p palette) withOverrides(tc config.ThemeConfig) palette {
	for _, o := range []struct {
		val *string
		dst *lipgloss.Color
	}{
		{tc.Green, &p.green},
		{tc.Blue, &p.blue},
		{tc.Yellow, &p.yellow},
		{tc.Red, &p.red},
		{tc.Teal, &p.teal},
		{tc.Mauve, &p.mauve},
		{tc.Muted, &p.muted},
		{tc.Dim, &p.dim},
		{tc.Bright, &p.bright},
	} {
		if o.val != nil && *o.val != "" {
			*o.dst = lipgloss.Color(*o.val)
		}
	}
	return p
}

var activePalette = defaultPalette()

var (
	styleHeader         lipgloss.Style
	styleHeaderLabel    lipgloss.Style
	styleDivider        lipgloss.Style
	styleIconDone       lipgloss.Style
	styleIconFailed     lipgloss.Style
	styleIconMismatch   lipgloss.Style
	styleDevicePath     lipgloss.Style
	styleDeviceLabel    lipgloss.Style
	styleSelected       lipgloss.Style
	stylePhase          lipgloss.Style
	styleSpeed          lipgloss.Style
	styleMuted          lipgloss.Style
	styleError          lipgloss.Style
	styleErrorPath      lipgloss.Style
	styleKeybindKey     lipgloss.Style
	styleKeybindLabel   lipgloss.Style
	styleBigNumber      lipgloss.Style
	styleSparkline      lipgloss.Style
	styleProgressFilled lipgloss.Style
	styleProgressEmpty  lipgloss.Style
	styleStatus         lipgloss.Style
	styleSavePrompt     lipgloss.Style
	styleSaveInput      lipgloss.Style
)

func init() {
	setStyles(activePalette)
}

func setStyles(p palette) {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	styleHeader = fg(p.bright).Bold(true)
	styleHeaderLabel = fg(p.mauve).Bold(true)
	styleDivider = fg(p.dim)

	styleIconDone = fg(p.green)
	styleIconFailed = fg(p.red)
	styleIconMismatch = fg(p.yellow)

	styleDevicePath = fg(p.bright)
	styleDeviceLabel = fg(p.muted)
	styleSelected = fg(p.mauve).Bold(true)
	stylePhase = fg(p.blue)
	styleSpeed = fg(p.teal)
	styleMuted = fg(p.muted)
	styleError = fg(p.red)
	styleErrorPath = fg(p.red).Bold(true)

	styleKeybindKey = fg(p.mauve).Bold(true)
	styleKeybindLabel = fg(p.muted)

	styleBigNumber = fg(p.green).Bold(true)
	styleSparkline = fg(p.blue)
	styleProgressFilled = fg(p.green)
	styleProgressEmpty = fg(p.dim)

	styleStatus = fg(p.yellow).Italic(true)
	styleSavePrompt = fg(p.muted)
	styleSaveInput = fg(p.bright)
}

// ApplyTheme replaces the default colors with those set in tc.
func ApplyTheme(tc config.ThemeConfig) {
	activePalette = defaultPalette().withOverrides(tc)
	setStyles(activePalette)
}
