package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the live vortex view.
type Theme struct {
	Name     string
	Sites    lipgloss.Color
	Vortices lipgloss.Color
	Border   lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:     "cyberpunk",
		Sites:    lipgloss.Color("#aa00aa"),
		Vortices: lipgloss.Color("#00ffff"),
		Border:   lipgloss.Color("#444466"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Sites:    lipgloss.Color("#005500"),
		Vortices: lipgloss.Color("#88ff88"),
		Border:   lipgloss.Color("#00cc00"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Sites:    lipgloss.Color("#555555"),
		Vortices: lipgloss.Color("#ffffff"),
		Border:   lipgloss.Color("#888888"),
	}

	ThemeSunset = Theme{
		Name:     "sunset",
		Sites:    lipgloss.Color("#8b6b8c"),
		Vortices: lipgloss.Color("#feca57"),
		Border:   lipgloss.Color("#ff6b6b"),
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to the first.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
