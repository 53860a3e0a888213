package motor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pb33f/frameseq/framegen"
)

// generateTestFrames writes a frame file laid out stream by stream, e.g.
// "GCDQP", into dir and returns its path. An empty layout writes an empty file.
func generateTestFrames(dir, name, layout string, seed int64) (string, error) {
	path := filepath.Join(dir, name)
	if layout == "" {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return "", fmt.Errorf("failed to create empty frame file: %w", err)
		}
		return path, nil
	}
	_, err := framegen.GenerateToFile(path, framegen.GenerateOptions{
		Layout: layout,
		Seed:   seed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate test frames: %w", err)
	}
	return path, nil
}

// generateRun writes a file of frames frames with context at the front
func generateRun(dir, name string, frames int, seed int64) (string, *framegen.GenerateResult, error) {
	path := filepath.Join(dir, name)
	result, err := framegen.GenerateToFile(path, framegen.GenerateOptions{
		FrameCount:   frames,
		EventsPerDAQ: 3,
		Seed:         seed,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate test run: %w", err)
	}
	return path, result, nil
}

// generateTwoFileRun is the reference layout: context only in the first file
func generateTwoFileRun(dir, ext string) ([]string, error) {
	first, err := generateTestFrames(dir, "run-001.frames"+ext, "GCDQP", 1)
	if err != nil {
		return nil, err
	}
	second, err := generateTestFrames(dir, "run-002.frames"+ext, "QPQPP", 2)
	if err != nil {
		return nil, err
	}
	return []string{first, second}, nil
}
