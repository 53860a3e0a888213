package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pb33f/frameseq/motor/model"
)

func (m *FrameBrowserModel) render() string {
	if m.err != nil {
		return m.renderError()
	}

	if m.viewMode == ViewModeTableWithSplit {
		return m.renderSplitView()
	}
	return m.renderTableView()
}

func (m *FrameBrowserModel) renderTableView() string {
	var builder strings.Builder

	builder.WriteString(m.renderTitle())
	builder.WriteString("\n")
	builder.WriteString(ColorizeFrameTableOutput(m.table.View(), m.table.Cursor(), m.rows))
	builder.WriteString("\n")
	builder.WriteString(m.renderStatusBar())

	return builder.String()
}

func (m *FrameBrowserModel) renderSplitView() string {
	var builder strings.Builder

	builder.WriteString(m.renderTitle())
	builder.WriteString("\n")
	builder.WriteString(ColorizeFrameTableOutput(m.table.View(), m.table.Cursor(), m.rows))
	builder.WriteString("\n")
	builder.WriteString(m.renderSplitPanel())
	builder.WriteString("\n")
	builder.WriteString(m.renderStatusBar())

	return builder.String()
}

func (m *FrameBrowserModel) renderTitle() string {
	names := make([]string, len(m.paths))
	for i, p := range m.paths {
		names[i] = filepath.Base(p)
	}
	title := fmt.Sprintf("frameseq: %s | ", strings.Join(names, ", "))

	titleStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		Padding(0, 1).
		Width(m.width).BorderForeground(RGBBlue).BorderTop(false).BorderLeft(false).BorderRight(false).BorderBottom(true)

	titleText := lipgloss.NewStyle().Bold(true).Render(title)

	count := fmt.Sprintf("(%d frames", len(m.allRows))
	if m.filter != model.StreamNone {
		count += fmt.Sprintf(", %d %s", len(m.rows), m.filter)
	}
	if m.loadTime > 0 {
		count += fmt.Sprintf(", loaded in %v", m.loadTime.Round(time.Millisecond))
	}
	count += ")"

	return titleStyle.Render(titleText + lipgloss.NewStyle().Faint(true).Render(count))
}

func (m *FrameBrowserModel) renderStatusBar() string {
	var parts []string

	if m.viewMode == ViewModeTable {
		parts = append(parts, "↑/↓: Navigate")
		parts = append(parts, "Enter: View Frame")
		parts = append(parts, "f: Filter Stream")
	} else {
		parts = append(parts, "↑/↓: Scroll")
		parts = append(parts, "Tab: Switch Panel")
		parts = append(parts, "Esc: Close Frame")
	}

	parts = append(parts, "q: Quit")

	if m.selectedIndex < len(m.visible) {
		parts = append(parts, fmt.Sprintf("Frame %d/%d", m.selectedIndex+1, len(m.visible)))
	}
	if m.filter != model.StreamNone {
		parts = append(parts, fmt.Sprintf("[%s]", m.filter))
	}

	if m.viewMode == ViewModeTableWithSplit {
		if m.focusedViewport == ViewportFocusDependencies {
			parts = append(parts, "[Context]")
		} else {
			parts = append(parts, "[Frame]")
		}
	}

	statusStyle := lipgloss.NewStyle().Faint(true)
	return statusStyle.Render(strings.Join(parts, " | "))
}

func (m *FrameBrowserModel) renderSplitPanel() string {
	if m.selectedFrame == nil {
		return m.renderEmptyPanel()
	}

	panelWidth := m.width/2 - splitPanelPadding
	panelHeight := (m.height-tableVerticalPadding)/2 - splitPanelPadding

	baseStyle := lipgloss.NewStyle().
		Width(panelWidth).
		Height(panelHeight).
		BorderStyle(lipgloss.NormalBorder())

	focusedBorderStyle := baseStyle.BorderForeground(RGBBlue)
	unfocusedBorderStyle := baseStyle.BorderForeground(lipgloss.Color("240"))

	leftBorderStyle := unfocusedBorderStyle
	rightBorderStyle := unfocusedBorderStyle
	if m.focusedViewport == ViewportFocusDependencies {
		leftBorderStyle = focusedBorderStyle
	} else {
		rightBorderStyle = focusedBorderStyle
	}

	leftPanel := leftBorderStyle.Render(m.depsViewport.View())
	rightPanel := rightBorderStyle.Render(m.frameViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m *FrameBrowserModel) renderEmptyPanel() string {
	emptyStyle := lipgloss.NewStyle().
		Faint(true).
		Align(lipgloss.Center, lipgloss.Center).
		Width(m.width).
		Height(m.height / 2)

	return emptyStyle.Render("No frame selected")
}

func (m *FrameBrowserModel) formatDependencies() string {
	if len(m.selectedDeps) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("No context frames")
	}
	return renderSections(buildDependencySections(m.selectedDeps), RenderOptions{
		Width:    m.depsViewport.Width(),
		Truncate: true,
	})
}

func (m *FrameBrowserModel) formatFrame() string {
	title := fmt.Sprintf("Frame %d", m.seq.GetFrameno())
	return renderSections(buildFrameSections(title, m.selectedFrame), RenderOptions{
		Width:    m.frameViewport.Width(),
		Truncate: true,
	})
}

func (m *FrameBrowserModel) renderError() string {
	return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
}

func (m *FrameBrowserModel) updateViewportContent() {
	if m.selectedFrame == nil {
		return
	}
	m.depsViewport.SetContent(m.formatDependencies())
	m.depsViewport.GotoTop()
	m.frameViewport.SetContent(m.formatFrame())
	m.frameViewport.GotoTop()
}
