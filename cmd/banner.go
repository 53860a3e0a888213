package cmd

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pb33f/frameseq/tui"
)

const frameseqASCII = `  __                                           
 / _|_ __ __ _ _ __ ___   ___  ___  ___  __ _ 
| |_| '__/ _' | '_ ' _ \ / _ \/ __|/ _ \/ _' |
|  _| | | (_| | | | | | |  __/\__ \  __/ (_| |
|_| |_|  \__,_|_| |_| |_|\___||___/\___|\__, |
                                           |_|`

// RenderBanner returns the styled banner for the version screen
func RenderBanner() string {
	bannerStyle := lipgloss.NewStyle().
		Foreground(tui.RGBPink).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(tui.RGBBlue).
		Italic(true)

	containerStyle := lipgloss.NewStyle().
		Align(lipgloss.Left).
		MarginBottom(1)

	banner := bannerStyle.Render(frameseqASCII)
	subtitle := subtitleStyle.Render("frameseq - one sequence, many files")

	return containerStyle.Render(banner + "\n" + subtitle)
}
