package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pb33f/frameseq/motor/model"
)

// pre-computed styles to avoid allocation in hot path
var (
	keyStyleBase = lipgloss.NewStyle().
			Foreground(RGBGrey).
			Align(lipgloss.Right)

	sectionHeaderStyleBase = lipgloss.NewStyle().
				Bold(true).
				Foreground(RGBPink)

	emptyValueText = lipgloss.NewStyle().Faint(true).Render("(empty)")
)

// KeyValuePair represents a single key-value pair
type KeyValuePair struct {
	Key   string
	Value string
}

// Section represents a grouped section of key-value pairs
type Section struct {
	Title string
	Pairs []KeyValuePair
}

// RenderOptions configures key-value rendering
type RenderOptions struct {
	Width    int  // total available width
	Truncate bool // whether to truncate long values
	KeyWidth int  // key column width (0 = auto-calculate)
}

// renderSections renders multiple sections as formatted key-value output
func renderSections(sections []Section, opts RenderOptions) string {
	if len(sections) == 0 {
		return ""
	}

	keyWidth := opts.KeyWidth
	if keyWidth == 0 {
		keyWidth = opts.Width * 3 / 10 // 30% for keys
		if keyWidth > 25 {
			keyWidth = 25
		}
		if keyWidth < 15 {
			keyWidth = 15
		}
	}
	valueWidth := opts.Width - keyWidth - 3

	var output strings.Builder

	for i, section := range sections {
		if section.Title != "" {
			output.WriteString(renderSectionHeader(section.Title, opts.Width))
			output.WriteString("\n")
		}

		for _, pair := range section.Pairs {
			output.WriteString(renderKeyValueRow(pair, keyWidth, valueWidth, opts.Truncate))
			output.WriteString("\n")
		}

		if i < len(sections)-1 {
			output.WriteString("\n")
		}
	}

	return output.String()
}

func renderSectionHeader(title string, width int) string {
	return sectionHeaderStyleBase.Width(width).Render(title)
}

// renderKeyValueRow renders a single pair; multi-line values continue under the value column
func renderKeyValueRow(pair KeyValuePair, keyWidth, valueWidth int, truncate bool) string {
	keyStyle := keyStyleBase.Width(keyWidth)

	value := pair.Value
	if value == "" {
		return keyStyle.Render(pair.Key) + "  " + emptyValueText
	}

	lines := strings.Split(value, "\n")
	indent := strings.Repeat(" ", keyWidth+2)

	var row strings.Builder
	for i, line := range lines {
		if truncate && valueWidth > 3 && lipgloss.Width(line) > valueWidth && !strings.Contains(line, "\x1b") {
			line = line[:valueWidth-3] + "..."
		}
		if i == 0 {
			row.WriteString(keyStyle.Render(pair.Key) + "  " + line)
			continue
		}
		row.WriteString("\n" + indent + line)
	}
	return row.String()
}

// buildFrameSections renders every item of a frame, values pretty printed
func buildFrameSections(title string, frame *model.Frame) []Section {
	pairs := make([]KeyValuePair, 0, len(frame.Items))
	for _, item := range frame.Items {
		pairs = append(pairs, KeyValuePair{
			Key:   item.Name,
			Value: formatItemValue(item),
		})
	}
	return []Section{{
		Title: fmt.Sprintf("%s [%s] (%d items)", title, frame.Stream, frame.Len()),
		Pairs: pairs,
	}}
}

// buildDependencySections lists the context frames, one section each
func buildDependencySections(deps []*model.Frame) []Section {
	sections := make([]Section, 0, len(deps))
	for _, dep := range deps {
		pairs := make([]KeyValuePair, 0, len(dep.Items))
		for _, item := range dep.Items {
			pairs = append(pairs, KeyValuePair{Key: item.Name, Value: item.Type})
		}
		sections = append(sections, Section{
			Title: fmt.Sprintf("%s (%d items)", dep.Stream, dep.Len()),
			Pairs: pairs,
		})
	}
	return sections
}

func formatItemValue(item model.Item) string {
	if len(item.Value) == 0 {
		return ""
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, item.Value, "", "  "); err != nil {
		return string(item.Value)
	}
	content := pretty.String()
	if len(content) > maxValueDisplayLength {
		content = content[:maxValueDisplayLength] + "\n...[truncated]"
	}
	return applySyntaxHighlightingToContent(content)
}
