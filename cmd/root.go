package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pb33f/frameseq/motor"
	"github.com/spf13/cobra"
)

var (
	verbose        bool
	configPath     string
	cacheWindow    int
	prefetchWindow int
	Logger         *slog.Logger

	// resolved in PersistentPreRunE from config files and flags
	activeConfig  = DefaultConfig()
	activeSources ConfigSources

	rootCmd = &cobra.Command{
		Use:   "frameseq <frame-file>...",
		Short: "Browse frame sequences spread over many files",
		Long: `frameseq reads newline-delimited JSON frame files, plain or gzip/zstd
compressed, as one continuous sequence of frames. Context frames such as
geometry and calibration carry forward from file to file, so every frame can be
viewed together with the frames it depends on.

Without a subcommand the files are opened in a terminal browser.`,
		Args: cobra.MinimumNArgs(1),
		Example: `  frameseq run1.frames run2.frames.zst
  frameseq dump run*.frames --stream Physics
  frameseq get run*.frames 1200 -v`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadActiveConfig(cmd)
		},
		RunE:         runFrameseq,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (JSON with comments)")
	rootCmd.PersistentFlags().IntVar(&cacheWindow, "cache-window", motor.DefaultCacheWindow, "Number of frame groups kept in memory")
	rootCmd.PersistentFlags().IntVar(&prefetchWindow, "prefetch", motor.DefaultPrefetchWindow, "Frames read ahead of the current one, 0 disables")

	// reconfigured in PersistentPreRunE once flags and config are known
	setupLogger()
}

func loadActiveConfig(cmd *cobra.Command) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	cfg, sources, err := LoadConfig(workDir, configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("cache-window") {
		cfg.CacheWindow = cacheWindow
	}
	if flags.Changed("prefetch") {
		cfg.PrefetchWindow = prefetchWindow
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	activeConfig = cfg
	activeSources = sources
	verbose = cfg.Verbose
	setupLogger()

	Logger.Debug("configuration loaded",
		"global", sources.Global,
		"project", sources.Project,
		"explicit", sources.Explicit,
		"cache_window", cfg.CacheWindow,
		"prefetch_window", cfg.PrefetchWindow,
		"queue_depth", cfg.QueueDepth)
	return nil
}

func runFrameseq(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		if err := ValidateFrameFile(path); err != nil {
			return fmt.Errorf("invalid frame file: %w", err)
		}
	}

	if err := LaunchTUI(args, activeConfig.SequenceOptions()); err != nil {
		return fmt.Errorf("failed to launch TUI: %w", err)
	}
	return nil
}

// setupLogger configures the global slog logger based on the verbose flag
func setupLogger() {
	var opts *slog.HandlerOptions

	if verbose {
		opts = &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}
	} else {
		opts = &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	if verbose {
		Logger.Debug("verbose logging enabled",
			"level", slog.LevelDebug.String(),
			"pid", os.Getpid())
	}
}

// GetLogger returns the global logger instance
func GetLogger() *slog.Logger {
	if Logger == nil {
		setupLogger()
	}
	return Logger
}

// ValidateFrameFile checks that path exists and is not a directory
func ValidateFrameFile(path string) error {
	if path == "" {
		return fmt.Errorf("frame file path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("frame file does not exist: %s", path)
		}
		return fmt.Errorf("error accessing frame file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("provided path is a directory, not a file: %s", path)
	}

	return nil
}

// OpenSequence validates paths and opens them as one sequence using the active config
func OpenSequence(paths []string, logger *slog.Logger) (*motor.FrameSequence, error) {
	for _, path := range paths {
		if err := ValidateFrameFile(path); err != nil {
			return nil, err
		}
	}

	opts := activeConfig.SequenceOptions()
	opts.Logger = logger

	seq, err := motor.OpenFrameSequence(paths, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame sequence: %w", err)
	}

	logger.Debug("frame sequence opened",
		"sequence", seq.Stats().ID,
		"files", len(paths),
		"cache_window", opts.CacheWindow,
		"prefetch_window", opts.PrefetchWindow)
	return seq, nil
}
