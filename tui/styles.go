package tui

import (
	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pb33f/frameseq/motor/model"
)

// Color constants matching vacuum
var (
	RGBBlue       = lipgloss.Color("45")
	RGBPink       = lipgloss.Color("201")
	RGBRed        = lipgloss.Color("196")
	RGBYellow     = lipgloss.Color("220")
	RGBGreen      = lipgloss.Color("46")
	RGBGrey       = lipgloss.Color("246")
	RGBSubtlePink = lipgloss.Color("#2a1a2a")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(RGBPink)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(RGBBlue)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(RGBRed).
			Bold(true)
)

// json value highlighting
var (
	SyntaxKeyStyle    = lipgloss.NewStyle().Foreground(RGBBlue)
	SyntaxDashStyle   = lipgloss.NewStyle().Foreground(RGBPink)
	SyntaxNumberStyle = lipgloss.NewStyle().Foreground(RGBYellow)
)

// Table colorization by stream: context streams stand out, event streams stay quiet
var (
	StyleStreamContext = lipgloss.NewStyle().Foreground(RGBYellow)
	StyleStreamSim     = lipgloss.NewStyle().Foreground(RGBBlue)
	StyleStreamDAQ     = lipgloss.NewStyle().Foreground(RGBGreen)
	StyleStreamPhysics = lipgloss.NewStyle().Foreground(RGBPink)
)

func streamStyle(s model.Stream) lipgloss.Style {
	switch {
	case s == model.Simulation:
		return StyleStreamSim
	case s.IsRare():
		return StyleStreamContext
	case s == model.DAQ:
		return StyleStreamDAQ
	default:
		return StyleStreamPhysics
	}
}

// ApplyTableStyles applies the vacuum table theme
func ApplyTableStyles(t table.Model) table.Model {
	s := table.DefaultStyles()

	s.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(RGBPink).
		BorderBottom(true).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		Foreground(RGBPink).
		Bold(true).
		Padding(0, 1)

	s.Selected = lipgloss.NewStyle().
		Bold(true).
		Foreground(RGBPink).
		Background(RGBSubtlePink).
		Padding(0, 0)

	s.Cell = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(RGBPink).
		BorderRight(false).
		Padding(0, 1)

	t.SetStyles(s)
	return t
}
