package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/pb33f/frameseq/motor/model"
)

// frameRow is what the browser remembers about every frame after loading
type frameRow struct {
	Index  int
	Stream model.Stream
	Items  int
	Names  []string
}

func newFrameRow(index int, frame *model.Frame) frameRow {
	return frameRow{
		Index:  index,
		Stream: frame.Stream,
		Items:  frame.Len(),
		Names:  frame.Names(),
	}
}

// buildTableRows keeps the rows matching the stream filter and remembers
// which frame each table row shows
func (m *FrameBrowserModel) buildTableRows() {
	rows := make([]table.Row, 0, len(m.allRows))
	visible := make([]int, 0, len(m.allRows))

	for i, r := range m.allRows {
		if m.filter != model.StreamNone && r.Stream != m.filter {
			continue
		}
		rows = append(rows, formatFrameRow(r, m.namesWidth()))
		visible = append(visible, i)
	}

	m.rows = rows
	m.visible = visible
}

func formatFrameRow(r frameRow, namesWidth int) table.Row {
	return table.Row{
		strconv.Itoa(r.Index),
		r.Stream.String(),
		strconv.Itoa(r.Items),
		truncateString(strings.Join(r.Names, ", "), namesWidth),
	}
}

func (m *FrameBrowserModel) namesWidth() int {
	w := m.width - indexColumnWidth - streamColumnWidth - itemsColumnWidth - borderPadding
	if w < minNamesWidth {
		w = minNamesWidth
	}
	return w
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return s[:maxLen]
	}

	return s[:maxLen-3] + "..."
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// nextFilter cycles None -> each stream present in the files -> None
func nextFilter(current model.Stream, present map[model.Stream]int) model.Stream {
	started := current == model.StreamNone
	for _, s := range model.AllStreams {
		if started && present[s] > 0 {
			return s
		}
		if s == current {
			started = true
		}
	}
	return model.StreamNone
}
