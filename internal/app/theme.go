package app

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha palette — true-color hex values
// https://catppuccin.com/palette

const (
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorSky      lipgloss.Color = "#89dceb"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorRed      lipgloss.Color = "#f38ba8"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface0 lipgloss.Color = "#313244"
	colorMantle   lipgloss.Color = "#181825"
)

const (
	colorBrand   = colorBlue
	colorAccent  = colorSky
	colorSuccess = colorGreen
	colorWarning = colorYellow
	colorError   = colorRed
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	headerBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorMantle).
			Padding(0, 2)

	tempStyle = lipgloss.NewStyle().Foreground(colorPeach).Bold(true)

	labelStyle = lipgloss.NewStyle().Foreground(colorOverlay1)
	valueStyle = lipgloss.NewStyle().Foreground(colorText)

	freshStyle   = lipgloss.NewStyle().Foreground(colorSuccess)
	staleStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	offlineStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface0).
			Padding(0, 1)

	pickerSelStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Background(colorSurface0).
			Bold(true)

	statusStyle = lipgloss.NewStyle().Foreground(colorSubtext0)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0).
			Background(colorMantle).
			Padding(0, 2)

	hintKeyStyle = lipgloss.NewStyle().Foreground(colorLavender)
)
