package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pb33f/frameseq/motor"
	"github.com/pb33f/frameseq/motor/model"
)

type LoadState int

const (
	LoadStateLoading LoadState = iota
	LoadStateLoaded
	LoadStateError
)

type sequenceLoadedMsg struct {
	seq      *motor.FrameSequence
	rows     []frameRow
	duration time.Duration
}

type sequenceErrorMsg struct {
	err error
}

// startLoading opens the sequence and reads it once front to back, which
// discovers every file size and the stream of every frame
func (m *FrameBrowserModel) startLoading() tea.Cmd {
	paths := m.paths
	options := m.options
	return func() tea.Msg {
		start := time.Now()

		seq, err := motor.OpenFrameSequence(paths, options)
		if err != nil {
			return sequenceErrorMsg{err: err}
		}

		rows, err := loadRows(context.Background(), seq)
		if err != nil {
			seq.Stop()
			return sequenceErrorMsg{err: err}
		}

		return sequenceLoadedMsg{
			seq:      seq,
			rows:     rows,
			duration: time.Since(start),
		}
	}
}

func loadRows(ctx context.Context, seq *motor.FrameSequence) ([]frameRow, error) {
	var rows []frameRow
	for {
		frame, err := seq.Pop(ctx, model.StreamNone)
		if errors.Is(err, motor.ErrNoFrame) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, newFrameRow(seq.GetFrameno(), frame))
	}
	seq.Rewind()
	return rows, nil
}

func (m *FrameBrowserModel) renderLoadingView() string {
	spinnerStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(RGBPink)

	fileInfoStyle := lipgloss.NewStyle().
		Foreground(RGBGrey)

	title := titleStyle.Render("Loading frame sequence")
	fileInfo := fileInfoStyle.Render("\n" + strings.Join(m.paths, "\n"))

	spinnerText := fmt.Sprintf("%s %s%s", m.loadingSpinner.View(), title, fileInfo)

	if m.loadingMessage != "" {
		messageStyle := lipgloss.NewStyle().
			Foreground(RGBBlue).
			MarginTop(2)
		spinnerText += "\n\n" + messageStyle.Render(m.loadingMessage)
	}

	return spinnerStyle.Render(spinnerText)
}

func (m *FrameBrowserModel) renderErrorView() string {
	errorStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(RGBRed).
		Bold(true)

	errorMsg := fmt.Sprintf("❌ Error loading frame sequence\n\n%v\n\nPress 'q' to quit", m.err)
	return errorStyle.Render(errorMsg)
}

// matching vacuum's Dot spinner
func createLoadingSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(RGBPink)
	return s
}
