package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Core palette
	Green     = lipgloss.Color("#00FF41")
	DimGreen  = lipgloss.Color("#3f7f4a")
	Amber     = lipgloss.Color("#FFB000")
	Red       = lipgloss.Color("#FF4136")
	Black     = lipgloss.Color("#0D0208")
	MidGray   = lipgloss.Color("#3a3a4e")
	LightGray = lipgloss.Color("#aaaaaa")

	// Accent is the theme color; Muted the secondary text color.
	Accent = Green
	Muted  = DimGreen
)

var (
	TitleStyle     lipgloss.Style
	SubtitleStyle  lipgloss.Style
	StatusBarStyle lipgloss.Style
	StatusErrStyle lipgloss.Style
	LabelStyle     lipgloss.Style
	FocusedLabel   lipgloss.Style
	ToggleOnStyle  lipgloss.Style
	ToggleOffStyle lipgloss.Style
	SelectedStyle  lipgloss.Style
	BoxStyle       lipgloss.Style
	HelpStyle      lipgloss.Style
	ErrorStyle     lipgloss.Style
	SuccessStyle   lipgloss.Style
	BannerStyle    lipgloss.Style
)

func init() {
	buildStyles()
}

// SetTheme switches the accent palette. Unknown names keep the green theme.
// Call it before the program starts.
func SetTheme(name string) {
	switch name {
	case "blue":
		Accent, Muted = lipgloss.Color("#4FC3F7"), lipgloss.Color("#4a6f8a")
	case "amber":
		Accent, Muted = Amber, lipgloss.Color("#8a6a2a")
	default:
		Accent, Muted = Green, DimGreen
	}
	buildStyles()
}

func buildStyles() {
	TitleStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	SubtitleStyle = lipgloss.NewStyle().Foreground(Muted)

	StatusBarStyle = lipgloss.NewStyle().
		Background(Accent).
		Foreground(Black).
		Bold(true).
		Padding(0, 1)
	StatusErrStyle = StatusBarStyle.Background(Red)

	LabelStyle = lipgloss.NewStyle().Foreground(Muted).Width(14)
	FocusedLabel = LabelStyle.Foreground(Accent).Bold(true)
	ToggleOnStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	ToggleOffStyle = lipgloss.NewStyle().Foreground(LightGray)
	SelectedStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true)

	BoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(Muted)
	ErrorStyle = lipgloss.NewStyle().Foreground(Red).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(Accent)
	BannerStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true)
}

const Banner = `
 ██████╗  ██████╗ ███████╗███████╗██╗  ██╗   ██╗
 ██╔══██╗██╔═══██╗██╔════╝██╔════╝██║  ╚██╗ ██╔╝
 ██║  ██║██║   ██║███████╗█████╗  ██║   ╚████╔╝
 ██║  ██║██║   ██║╚════██║██╔══╝  ██║    ╚██╔╝
 ██████╔╝╚██████╔╝███████║███████╗███████╗██║
 ╚═════╝  ╚═════╝ ╚══════╝╚══════╝╚══════╝╚═╝
`
