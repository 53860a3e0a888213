package framegen

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// used when no dictionary file is installed (windows, containers)
var fallbackWords = []string{
	"dom", "string", "tray", "module", "channel", "pulse", "charge",
	"trigger", "launch", "waveform", "baseline", "gain", "offset",
	"threshold", "deadtime", "hit", "track", "cascade", "muon", "neutrino",
	"energy", "zenith", "azimuth", "vertex", "direction", "speed",
	"quality", "status", "enabled", "voltage", "current", "temperature",
	"pressure", "clock", "counter", "bin", "window", "readout", "digitizer",
	"atwd", "fadc", "calib", "geometry", "detector", "run", "subrun",
	"event", "header", "payload", "seed", "weight", "primary", "secondary",
	"depth", "position", "orientation", "noise", "rate", "spe", "charge",
}

// Dictionary holds words used for item names and payload values
type Dictionary struct {
	words []string
}

// LoadDictionary loads words from a file, one per line. A missing file
// falls back to a built-in word list.
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		return &Dictionary{words: fallbackWords}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Dictionary{words: fallbackWords}, nil
		}
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if len(word) >= 3 && len(word) <= 15 && isAlpha(word) {
			words = append(words, strings.ToLower(word))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("no valid words found in dictionary")
	}

	return &Dictionary{words: words}, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func (d *Dictionary) RandomWord(rng *rand.Rand) string {
	if len(d.words) == 0 {
		return "word"
	}
	return d.words[rng.Intn(len(d.words))]
}

func (d *Dictionary) Size() int {
	return len(d.words)
}
