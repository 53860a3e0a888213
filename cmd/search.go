package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/pb33f/frameseq/motor"
	"github.com/pb33f/frameseq/motor/model"
	"github.com/spf13/cobra"
)

var (
	searchRegex      bool
	searchIgnoreCase bool
	searchValues     bool
	searchStream     string
	searchWorkers    int
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern> <frame-file>...",
	Short: "Find frames whose stream, item names or item values match a pattern",
	Long: `Index the files, then search every frame in parallel. Stream names, item
names and item types are always searched; raw item values only with --values.
Frame numbers are global, the same numbers get and the browser use.`,
	Args: cobra.MinimumNArgs(2),
	Example: `  frameseq search Calibration run*.frames
  frameseq search --values --regex 'SMT\d' run*.frames --stream D`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVarP(&searchRegex, "regex", "r", false, "Treat pattern as a regular expression")
	searchCmd.Flags().BoolVarP(&searchIgnoreCase, "ignore-case", "i", false, "Case-insensitive match")
	searchCmd.Flags().BoolVar(&searchValues, "values", false, "Also search raw item values")
	searchCmd.Flags().StringVarP(&searchStream, "stream", "s", "", "Only frames of this stream (name or code)")
	searchCmd.Flags().IntVarP(&searchWorkers, "workers", "w", 0, "Search workers (0 = one per CPU)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := GetLogger()
	pattern, paths := args[0], args[1:]

	for _, path := range paths {
		if err := ValidateFrameFile(path); err != nil {
			return err
		}
	}

	opts := motor.DefaultSearchOptions
	opts.IgnoreCase = searchIgnoreCase
	opts.SearchValues = searchValues
	if searchRegex {
		opts.Mode = motor.Regex
	}
	if searchWorkers > 0 {
		opts.WorkerCount = searchWorkers
	}
	if searchStream != "" {
		s, err := model.ParseStream(searchStream)
		if err != nil {
			return err
		}
		opts.Stream = s
	}

	indexes, err := motor.ScanFiles(cmd.Context(), paths, opts.WorkerCount)
	if err != nil {
		return err
	}
	searcher, err := motor.NewSearcher(indexes)
	if err != nil {
		return err
	}

	resultChan, err := searcher.Search(cmd.Context(), pattern, opts)
	if err != nil {
		return err
	}
	results := motor.Collect(resultChan)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "FRAME\tSTREAM\tFIELD\tFILE\n")
	for _, r := range results {
		if r.Error != nil {
			logger.Warn("frame could not be searched", "frame", r.Index, "path", r.Path, "error", r.Error)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s:%d\n", r.Index, r.Stream, r.Field, r.Path, r.Local)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := searcher.Stats()
	logger.Info("search complete",
		"frames", stats.FramesSearched,
		"matches", stats.MatchesFound,
		"bytes", stats.BytesSearched,
		"elapsed", stats.SearchDuration)
	return nil
}
