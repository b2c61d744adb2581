package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of tables and plots.
type Theme struct {
	Name   string
	Header lipgloss.Color
	Border lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
	Select lipgloss.Color
	Fast   lipgloss.Color
	Medium lipgloss.Color
	Slow   lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:   "cyberpunk",
		Header: lipgloss.Color("#00ffff"),
		Border: lipgloss.Color("#444466"),
		Text:   lipgloss.Color("#ffffff"),
		Muted:  lipgloss.Color("#666688"),
		Select: lipgloss.Color("#ff00ff"),
		Fast:   lipgloss.Color("#00ff88"),
		Medium: lipgloss.Color("#ffcc00"),
		Slow:   lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:   "retro",
		Header: lipgloss.Color("#88ff88"),
		Border: lipgloss.Color("#005500"),
		Text:   lipgloss.Color("#00ff00"),
		Muted:  lipgloss.Color("#007700"),
		Select: lipgloss.Color("#ccffcc"),
		Fast:   lipgloss.Color("#88ff88"),
		Medium: lipgloss.Color("#ffff00"),
		Slow:   lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:   "minimal",
		Header: lipgloss.Color("#ffffff"),
		Border: lipgloss.Color("#888888"),
		Text:   lipgloss.Color("#cccccc"),
		Muted:  lipgloss.Color("#888888"),
		Select: lipgloss.Color("#0088ff"),
		Fast:   lipgloss.Color("#cccccc"),
		Medium: lipgloss.Color("#ffaa00"),
		Slow:   lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:   "ocean",
		Header: lipgloss.Color("#00a8cc"),
		Border: lipgloss.Color("#4488aa"),
		Text:   lipgloss.Color("#e0f0ff"),
		Muted:  lipgloss.Color("#4488aa"),
		Select: lipgloss.Color("#ffd700"),
		Fast:   lipgloss.Color("#00ff88"),
		Medium: lipgloss.Color("#ffcc00"),
		Slow:   lipgloss.Color("#ff4444"),
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, falling back to cyberpunk.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// next returns the theme after t in Themes.
func (t Theme) next() Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
