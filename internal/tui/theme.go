package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

type ThemeName string

const (
	ThemePorcelain ThemeName = "porcelain"
	ThemeMidnight  ThemeName = "midnight"
)

type Theme struct {
	Name ThemeName

	TextPrimary lipgloss.AdaptiveColor
	TextMuted   lipgloss.AdaptiveColor
	TextFaint   lipgloss.AdaptiveColor

	Accent   lipgloss.AdaptiveColor
	Success  lipgloss.AdaptiveColor
	Warn     lipgloss.AdaptiveColor
	Error    lipgloss.AdaptiveColor
	Border   lipgloss.AdaptiveColor
	BorderHi lipgloss.AdaptiveColor

	TopBar      lipgloss.Style
	TopBarTitle lipgloss.Style
	TopBarBadge lipgloss.Style
	TopBarMeta  lipgloss.Style

	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style
	PaneDivider lipgloss.Style
	Footer      lipgloss.Style
	InputBox    lipgloss.Style
	InputBoxF   lipgloss.Style
	Spinner     lipgloss.Style

	RoleYou   lipgloss.Style
	RoleAgent lipgloss.Style
	RoleErr   lipgloss.Style

	AgentWaiting lipgloss.Style
	StreamCursor lipgloss.Style

	TraceKind    lipgloss.Style
	TraceNeutral lipgloss.Style
	TraceErr     lipgloss.Style
}

// NewTheme picks a palette from the config value, with QUORUM_THEME and
// QUORUM_NO_COLOR as overrides for odd terminals.
func NewTheme(name string) Theme {
	if v := os.Getenv("QUORUM_THEME"); v != "" {
		name = v
	}
	if os.Getenv("QUORUM_NO_COLOR") == "1" {
		return newNoColorTheme()
	}
	switch ThemeName(name) {
	case ThemeMidnight:
		return newMidnightTheme()
	default:
		return newPorcelainTheme()
	}
}

func newPorcelainTheme() Theme {
	t := Theme{
		Name:        ThemePorcelain,
		TextPrimary: lipgloss.AdaptiveColor{Light: "#1d2433", Dark: "#f2f2f2"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#4a5568", Dark: "#c7c7c7"},
		TextFaint:   lipgloss.AdaptiveColor{Light: "#718096", Dark: "#9aa0a6"},
		Accent:      lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#7aa2f7"},
		Success:     lipgloss.AdaptiveColor{Light: "#047857", Dark: "#9ece6a"},
		Warn:        lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#e0af68"},
		Error:       lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f7768e"},
		Border:      lipgloss.AdaptiveColor{Light: "#cbd5e0", Dark: "#3b4261"},
		BorderHi:    lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#7aa2f7"},
	}
	return t.build()
}

func newMidnightTheme() Theme {
	t := Theme{
		Name:        ThemeMidnight,
		TextPrimary: lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#e2e8f0"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#334155", Dark: "#94a3b8"},
		TextFaint:   lipgloss.AdaptiveColor{Light: "#64748b", Dark: "#64748b"},
		Accent:      lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"},
		Success:     lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"},
		Warn:        lipgloss.AdaptiveColor{Light: "#d97706", Dark: "#fbbf24"},
		Error:       lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"},
		Border:      lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#334155"},
		BorderHi:    lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"},
	}
	return t.build()
}

func newNoColorTheme() Theme {
	plain := lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}
	muted := lipgloss.AdaptiveColor{Light: "#333333", Dark: "#dddddd"}
	t := Theme{
		Name:        "no-color",
		TextPrimary: plain,
		TextMuted:   muted,
		TextFaint:   muted,
		Accent:      plain,
		Success:     plain,
		Warn:        plain,
		Error:       plain,
		Border:      muted,
		BorderHi:    plain,
	}
	return t.build()
}

func (t Theme) build() Theme {
	t.TopBar = lipgloss.NewStyle().Foreground(t.TextPrimary)
	t.TopBarTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.TopBarBadge = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.TopBarMeta = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.Pane = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.PaneFocused = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.BorderHi).Padding(0, 1)
	t.PaneTitle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.PaneDivider = lipgloss.NewStyle().Foreground(t.Border)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextFaint)
	t.InputBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.InputBoxF = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.BorderHi).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)

	t.RoleYou = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.RoleAgent = lipgloss.NewStyle().Bold(true).Foreground(t.Success)
	t.RoleErr = lipgloss.NewStyle().Bold(true).Foreground(t.Error)

	t.AgentWaiting = lipgloss.NewStyle().Foreground(t.TextFaint).Italic(true)
	t.StreamCursor = lipgloss.NewStyle().Foreground(t.Accent)

	t.TraceKind = lipgloss.NewStyle().Foreground(t.Accent)
	t.TraceNeutral = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.TraceErr = lipgloss.NewStyle().Foreground(t.Error)
	return t
}
