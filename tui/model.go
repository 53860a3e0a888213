package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/charmbracelet/bubbles/v2/viewport"
	"github.com/pb33f/frameseq/motor"
	"github.com/pb33f/frameseq/motor/model"
)

// ViewMode represents the different view states
type ViewMode int

const (
	ViewModeTable ViewMode = iota
	ViewModeTableWithSplit
)

// ViewportFocus is the split panel receiving scroll keys
type ViewportFocus int

const (
	ViewportFocusDependencies ViewportFocus = iota
	ViewportFocusFrame
)

type FrameBrowserModel struct {
	table   table.Model
	allRows []frameRow
	rows    []table.Row
	visible []int // allRows position of every table row
	columns []table.Column
	streams map[model.Stream]int
	filter  model.Stream

	seq     *motor.FrameSequence
	paths   []string
	options motor.SequenceOptions

	selectedFrame *model.Frame
	selectedDeps  []*model.Frame
	selectedIndex int

	viewMode ViewMode
	width    int
	height   int
	ready    bool
	quitting bool

	depsViewport    viewport.Model
	frameViewport   viewport.Model
	focusedViewport ViewportFocus
	splitVisible    bool

	loadState      LoadState
	loadingSpinner spinner.Model
	loadingMessage string
	loadTime       time.Duration

	err error
}

func NewFrameBrowserModel(paths []string, options motor.SequenceOptions) (*FrameBrowserModel, error) {
	columns := []table.Column{
		{Title: "#", Width: indexColumnWidth},
		{Title: "Stream", Width: streamColumnWidth},
		{Title: "Items", Width: itemsColumnWidth},
		{Title: "Names", Width: minNamesWidth},
	}

	m := &FrameBrowserModel{
		paths:          paths,
		options:        options,
		columns:        columns,
		streams:        make(map[model.Stream]int),
		viewMode:       ViewModeTable,
		loadState:      LoadStateLoading,
		loadingSpinner: createLoadingSpinner(),
		loadingMessage: "Reading frames...",
	}

	return m, nil
}

func (m *FrameBrowserModel) Init() tea.Cmd {
	return tea.Batch(
		m.loadingSpinner.Tick,
		m.startLoading(),
	)
}

func (m *FrameBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if m.loadState == LoadStateLoading {
		m.loadingSpinner, cmd = m.loadingSpinner.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	switch msg := msg.(type) {
	case sequenceLoadedMsg:
		m.loadState = LoadStateLoaded
		m.seq = msg.seq
		m.allRows = msg.rows
		m.loadTime = msg.duration
		for _, r := range msg.rows {
			m.streams[r.Stream]++
		}

		if m.width > 0 && m.height > 0 {
			m.initializeTable()
			m.ready = true
		}
		return m, nil

	case sequenceErrorMsg:
		m.loadState = LoadStateError
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if m.loadState == LoadStateLoaded && !m.ready {
			m.initializeTable()
			m.ready = true
		} else if m.ready {
			m.updateTableDimensions()
		}

		if m.splitVisible {
			m.updateViewportDimensions()
		}

	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter", "return":
			if m.loadState == LoadStateLoaded && len(m.visible) > 0 {
				if !m.splitVisible {
					m.toggleSplitView()
				}
				if err := m.loadSelectedFrame(); err != nil {
					m.err = err
				}
			}
			return m, nil

		case "tab":
			if m.splitVisible {
				if m.focusedViewport == ViewportFocusDependencies {
					m.focusedViewport = ViewportFocusFrame
				} else {
					m.focusedViewport = ViewportFocusDependencies
				}
			}
			return m, nil

		case "f":
			if m.loadState == LoadStateLoaded && m.ready && !m.splitVisible {
				m.filter = nextFilter(m.filter, m.streams)
				m.applyFilter()
			}
			return m, nil

		case "esc":
			if m.loadState == LoadStateLoaded && m.splitVisible {
				m.toggleSplitView()
			}
			return m, nil
		}
	}

	if m.loadState == LoadStateLoaded && m.ready {
		if !m.splitVisible {
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
			m.selectedIndex = m.table.Cursor()
		} else if m.focusedViewport == ViewportFocusDependencies {
			m.depsViewport, cmd = m.depsViewport.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			m.frameViewport, cmd = m.frameViewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *FrameBrowserModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.loadState {
	case LoadStateLoading:
		return m.renderLoadingView()
	case LoadStateError:
		return m.renderErrorView()
	case LoadStateLoaded:
		if !m.ready {
			return "Initializing..."
		}
		return m.render()
	default:
		return "Unknown state"
	}
}

// Cleanup stops the sequence and its worker
func (m *FrameBrowserModel) Cleanup() error {
	if m.seq == nil {
		return nil
	}
	return m.seq.Stop()
}

func (m *FrameBrowserModel) initializeTable() {
	m.buildTableRows()

	m.table = table.New(
		table.WithColumns(m.columns),
		table.WithRows(m.rows),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
		table.WithWidth(m.width),
	)

	m.table = ApplyTableStyles(m.table)
	m.adjustColumnWidths()
}

func (m *FrameBrowserModel) applyFilter() {
	m.buildTableRows()
	m.table.SetRows(m.rows)
	m.table.SetCursor(0)
	m.selectedIndex = 0
}

func (m *FrameBrowserModel) tableHeight() int {
	h := m.height - tableVerticalPadding
	if m.splitVisible {
		h = (m.height - tableVerticalPadding) / 2
	}
	return h
}

func (m *FrameBrowserModel) updateTableDimensions() {
	m.table.SetHeight(m.tableHeight())
	m.table.SetWidth(m.width)
	m.adjustColumnWidths()
}

func (m *FrameBrowserModel) updateViewportDimensions() {
	splitHeight := (m.height-tableVerticalPadding)/2 - splitPanelPadding
	splitWidth := (m.width / 2) - splitPanelPadding

	if m.depsViewport.Width() == 0 {
		m.depsViewport = viewport.New(viewport.WithWidth(splitWidth), viewport.WithHeight(splitHeight))
		m.frameViewport = viewport.New(viewport.WithWidth(splitWidth), viewport.WithHeight(splitHeight))
	} else {
		m.depsViewport.SetWidth(splitWidth)
		m.depsViewport.SetHeight(splitHeight)
		m.frameViewport.SetWidth(splitWidth)
		m.frameViewport.SetHeight(splitHeight)
	}
}

func (m *FrameBrowserModel) toggleSplitView() {
	if m.viewMode == ViewModeTable {
		m.viewMode = ViewModeTableWithSplit
		m.splitVisible = true
		m.focusedViewport = ViewportFocusFrame
		m.updateTableDimensions()
		m.updateViewportDimensions()
	} else {
		m.viewMode = ViewModeTable
		m.splitVisible = false
		m.updateTableDimensions()
	}
}

// loadSelectedFrame reads the selected frame through random access, which
// also brings in the context frames it depends on
func (m *FrameBrowserModel) loadSelectedFrame() error {
	if m.selectedIndex >= len(m.visible) {
		return nil
	}
	row := m.allRows[m.visible[m.selectedIndex]]

	frame, err := m.seq.At(context.Background(), row.Index)
	if err != nil {
		return err
	}
	deps, err := m.seq.GetMixedFrames()
	if err != nil {
		return err
	}

	m.selectedFrame = frame
	m.selectedDeps = deps
	m.updateViewportContent()
	return nil
}

func (m *FrameBrowserModel) adjustColumnWidths() {
	m.columns[0].Width = indexColumnWidth
	m.columns[1].Width = streamColumnWidth
	m.columns[2].Width = itemsColumnWidth
	m.columns[3].Width = m.namesWidth()

	m.table.SetColumns(m.columns)
}
