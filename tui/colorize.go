package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/pb33f/frameseq/motor/model"
)

// pre-rendered stream names to avoid repeated style.Render() calls in hot path
var renderedStreams = make(map[string]string, len(model.AllStreams))

func init() {
	for _, s := range model.AllStreams {
		renderedStreams[s.String()] = streamStyle(s).Render(s.String())
	}
}

// ColorizeFrameTableOutput colors stream names in the rendered table. The
// selected row is skipped so the table keeps its highlight background.
func ColorizeFrameTableOutput(tableView string, cursor int, rows []table.Row) string {
	lines := strings.Split(tableView, "\n")

	// identify the selected row by content as well, the background marker is lost when scrolled
	var selectedIndex, selectedNames string
	if cursor >= 0 && cursor < len(rows) && len(rows[cursor]) >= 4 {
		selectedIndex = " " + rows[cursor][0] + " "
		selectedNames = prefix(rows[cursor][3], 10)
	}

	// ANSI escape sequence for pink background (matches table selected style from styles.go)
	selectedLineMarker := "\x1b[1;38;5;201;48;2;42;26;42m"

	var result strings.Builder
	result.Grow(len(tableView) + len(lines)*40)

	for i, line := range lines {
		isSelectedLine := strings.Contains(line, selectedLineMarker) ||
			(selectedIndex != "" && strings.Contains(line, selectedIndex) && strings.Contains(line, selectedNames))

		// skip header row (i=0) and selected rows (already styled by table)
		if i >= 1 && !isSelectedLine {
			line = colorizeStream(line)
		}

		result.WriteString(line)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}

	return result.String()
}

func colorizeStream(line string) string {
	for name, rendered := range renderedStreams {
		token := " " + name + " "
		if strings.Contains(line, token) {
			return strings.Replace(line, token, " "+rendered+" ", 1)
		}
	}
	return line
}
