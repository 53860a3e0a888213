package cmd

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/pb33f/frameseq/motor"
	"github.com/pb33f/frameseq/tui"
)

func LaunchTUI(paths []string, opts motor.SequenceOptions) error {
	// stderr logging would tear through the alt screen
	if !verbose {
		opts.Logger = slog.New(slog.DiscardHandler)
	} else {
		opts.Logger = GetLogger()
	}

	model, err := tui.NewFrameBrowserModel(paths, opts)
	if err != nil {
		return fmt.Errorf("failed to create TUI model: %w", err)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	// cleanup resources
	if m, ok := finalModel.(*tui.FrameBrowserModel); ok {
		if err := m.Cleanup(); err != nil {
			return fmt.Errorf("cleanup error: %w", err)
		}
	}

	return nil
}
