package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/reel/internal/colour"
	"github.com/jmylchreest/reel/internal/compression"
	"github.com/jmylchreest/reel/internal/config"
	"github.com/jmylchreest/reel/internal/pipeline"
	"github.com/jmylchreest/reel/internal/progress"
	"github.com/jmylchreest/reel/internal/seed"
	"github.com/jmylchreest/reel/internal/video"
)

// newExtractCmd represents the extract command
func newExtractCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Extract the colour palette of a video",
		Long: `Extract the colour palette of a video.

Every frame in the chosen time range is shrunk to --resize-height rows, its
pixels are filtered (near-black and near-white pixels are always dropped,
then --saturation and --luminance thresholds apply) and the survivors are
counted. The most frequent colours are listed and all colours are grouped
into --colour-clusters representative colours, weighted by frequency.

Examples:
  # Palette of a whole film with 5 clusters
  reel extract film.mp4

  # Only vivid colours between 00:10:00 and 00:12:30
  reel extract --saturation 0.4 --luminance 0.2 --start 00:10:00 --end 00:12:30 film.mp4

  # 8 clusters as JSON, compressed
  reel extract -c 8 -f json -o palette.json.xz film.mp4

  # Higher fidelity sampling on 4 workers
  reel extract --resize-height 48 --workers 4 film.mkv

  # A directory of screenshots is read as a sequence of frames
  reel extract --preview ./screenshots`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], opts)
		},
	}

	defaults := colour.DefaultExtractorConfig()
	flags := cmd.Flags()
	flags.Float64P(config.KeySaturation, "s", defaults.Saturation, "minimum HSV saturation of kept pixels (0.0-1.0)")
	flags.Float64P(config.KeyLuminance, "l", defaults.Luminance, "minimum HSV value of kept pixels (0.0-1.0)")
	flags.IntP(config.KeyResizeHeight, "r", defaults.SampleHeight, "resize frames to this height before sampling (keeps aspect ratio)")
	flags.IntP(config.KeyClusters, "c", defaults.Clusters, "number of colour clusters to create")
	flags.Int(config.KeyMaxIterations, defaults.MaxIterations, "maximum k-means iterations")
	flags.String(config.KeyStart, "", "start time (HH:MM:SS or duration such as 1m30s)")
	flags.String(config.KeyEnd, "", "end time (HH:MM:SS or duration such as 1m30s)")
	flags.IntP(config.KeyTop, "n", 10, "number of most frequent colours to list")
	flags.StringP(config.KeyFormat, "f", "text", "output format (text, hex, json)")
	flags.StringP(config.KeyOutput, "o", "", "output file, compressed when ending in .xz or .gz (default: stdout)")
	flags.Bool(config.KeyPreview, false, "show colour swatches in text output (default: on when stdout is a terminal)")
	flags.Int(config.KeyWorkers, 1, "number of frames processed in parallel")
	flags.String(config.KeySeedMode, string(seed.ModeContent), "k-means seed mode (content, filepath, manual, random)")
	flags.Int64(config.KeySeed, 0, "k-means seed for --seed-mode manual")
	flags.Bool(config.KeyNoProgress, false, "disable the progress bar")

	return cmd
}

// runExtract executes the extract command.
func runExtract(cmd *cobra.Command, source string, opts *globalOptions) error {
	v, err := config.New(opts.configFile)
	if err != nil {
		return err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	settings := config.LoadExtract(v)

	// Reject bad settings before any frame is decoded.
	extractorCfg, err := settings.ExtractorConfig()
	if err != nil {
		return err
	}
	window, err := settings.Window()
	if err != nil {
		return err
	}
	seedCfg, err := settings.SeedConfig()
	if err != nil {
		return err
	}
	if !IsValidFormat(settings.Format) {
		return fmt.Errorf("%w: unsupported format: %s (supported: %v)", colour.ErrInvalidConfig, settings.Format, ValidFormats())
	}

	logger := opts.logger
	logger.Debug("extract settings", "source", source, "sample_height", extractorCfg.SampleHeight,
		"saturation", extractorCfg.Saturation, "luminance", extractorCfg.Luminance,
		"clusters", extractorCfg.Clusters, "start", window.Start, "end", window.End,
		"workers", settings.Workers, "seed_mode", seedCfg.Mode)

	preview := settings.Preview
	if !v.IsSet(config.KeyPreview) {
		preview = settings.Output == "" && isTerminal(cmd.OutOrStdout())
	}

	reporter := progress.ForTerminal(!opts.quiet && !settings.NoProgress)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opener := video.NewOpener(source, video.WithLogger(logger.Named("video")))
	result, err := pipeline.Run(ctx, opener, pipeline.Config{
		Source:    source,
		Window:    window,
		Extractor: extractorCfg,
		Seed: func(r colour.Ranking) (int64, error) {
			return seed.Calculate(r, source, seedCfg)
		},
		Options: pipeline.Options{
			Workers:  settings.Workers,
			Progress: reporter,
			Logger:   logger.Named("pipeline"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to extract colours from %s: %w", source, err)
	}

	output, err := FormatResult(result, settings.Format, settings.Top, preview)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if settings.Output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), output)
		return err
	}

	logger.Debug("writing output", "path", settings.Output)
	w, err := compression.Create(settings.Output)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, output); err != nil {
		w.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !opts.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote palette to %s\n", settings.Output)
	}
	return nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
