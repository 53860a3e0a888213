package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pb33f/frameseq/motor"
	"github.com/pb33f/frameseq/motor/model"
	"github.com/spf13/cobra"
)

var (
	dumpStream string
	dumpDeps   bool
	dumpLimit  int
)

var dumpCmd = &cobra.Command{
	Use:   "dump <frame-file>...",
	Short: "Print every frame of a sequence in order",
	Long: `Read the files as one sequence from the first frame to the last and print a
line per frame. With --stream only frames of that stream are printed, and with
--deps every frame is followed by the context frames it depends on.`,
	Args: cobra.MinimumNArgs(1),
	Example: `  frameseq dump run1.frames run2.frames
  frameseq dump run*.frames --stream P --deps
  frameseq dump run*.frames.zst -n 100`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&dumpStream, "stream", "s", "", "Only frames of this stream (name or code)")
	dumpCmd.Flags().BoolVar(&dumpDeps, "deps", false, "List the context frames of every printed frame")
	dumpCmd.Flags().IntVarP(&dumpLimit, "limit", "n", 0, "Stop after this many frames (0 = all)")
}

func runDump(cmd *cobra.Command, args []string) error {
	logger := GetLogger()

	filter := model.StreamNone
	if dumpStream != "" {
		s, err := model.ParseStream(dumpStream)
		if err != nil {
			return err
		}
		filter = s
	}

	seq, err := OpenSequence(args, logger)
	if err != nil {
		return err
	}
	defer seq.Stop()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	count := 0
	for dumpLimit == 0 || count < dumpLimit {
		frame, err := seq.Pop(ctx, filter)
		if err != nil {
			if errors.Is(err, motor.ErrNoFrame) {
				break
			}
			return err
		}
		if err := printFrameLine(out, seq, seq.GetFrameno(), frame); err != nil {
			return fmt.Errorf("failed to print frame %d: %w", seq.GetFrameno(), err)
		}
		count++
	}

	stats := seq.Stats()
	logger.Info("dump complete",
		"frames", count,
		"size", seq.GetSize(),
		"filtered", stats.FramesFiltered,
		"cache_hits", stats.CacheHits,
		"sync_reads", stats.SyncReads,
		"avg_read", stats.AverageReadTime)
	return nil
}

func printFrameLine(out io.Writer, seq *motor.FrameSequence, index int, frame *model.Frame) error {
	if _, err := fmt.Fprintf(out, "%8d  %-14s  %s\n", index, frame.Stream, strings.Join(frame.Names(), ", ")); err != nil {
		return err
	}
	if !dumpDeps {
		return nil
	}

	deps, err := seq.GetMixedFrames()
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if _, err := fmt.Fprintf(out, "          <- %-14s %s\n", dep.Stream, strings.Join(dep.Names(), ", ")); err != nil {
			return err
		}
	}
	return nil
}
