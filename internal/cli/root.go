// Package cli provides the command-line interface for reel.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/reel/internal/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	verbose    bool
	quiet      bool
	configFile string

	logger hclog.Logger
}

// NewRootCmd builds the reel command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{logger: hclog.NewNullLogger()}

	rootCmd := &cobra.Command{
		Use:   "reel",
		Short: "Extract a colour palette from a video",
		Long: `reel samples the frames of a video, filters out near-black, near-white,
washed-out and dim pixels, ranks the remaining colours by how often they
appear and groups them into a handful of representative colours with
frequency-weighted k-means clustering.

Videos are decoded with ffmpeg, which must be on your PATH. Still images and
directories of images (JPEG, PNG, GIF, WebP) are also accepted.`,
		Version:      version.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose && opts.quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			opts.logger = newLogger(opts.verbose, opts.quiet)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ~/.config/reel/config.yaml)")

	rootCmd.SetVersionTemplate(version.Get().String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newExtractCmd(opts))

	return rootCmd
}

// newLogger returns the application logger for the verbosity flags.
func newLogger(verbose, quiet bool) hclog.Logger {
	level := hclog.Warn
	switch {
	case verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "reel",
		Output: os.Stderr,
		Level:  level,
	})
}

// versionReport is the JSON form of the version command.
type versionReport struct {
	version.Info
	Tools []version.Tool `json:"tools"`
}

// newVersionCmd represents the version command
func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the reel version, commit, build date and Go version, and where the
ffmpeg and ffprobe binaries used for video decoding were found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			tools := version.Tools()
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.MarshalIndent(versionReport{Info: info, Tools: tools}, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to convert to JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintln(out, info.String())
			for _, t := range tools {
				path := t.Path
				if !t.Found() {
					path = "not found (videos cannot be decoded)"
				}
				fmt.Fprintf(out, "  %-8s %s\n", t.Name+":", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}
