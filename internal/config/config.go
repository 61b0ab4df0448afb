// Package config resolves extraction settings from flags, REEL_* environment
// variables and an optional YAML config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/reel/internal/colour"
	"github.com/jmylchreest/reel/internal/seed"
	"github.com/jmylchreest/reel/internal/video"
)

// EnvPrefix is the prefix for environment overrides, e.g. REEL_RESIZE_HEIGHT.
const EnvPrefix = "REEL"

// Keys shared by flags, environment variables and the config file.
const (
	KeySaturation    = "saturation"
	KeyLuminance     = "luminance"
	KeyResizeHeight  = "resize-height"
	KeyClusters      = "colour-clusters"
	KeyMaxIterations = "max-iterations"
	KeyStart         = "start"
	KeyEnd           = "end"
	KeyTop           = "top"
	KeyFormat        = "format"
	KeyOutput        = "output"
	KeyPreview       = "preview"
	KeyWorkers       = "workers"
	KeySeedMode      = "seed-mode"
	KeySeed          = "seed"
	KeyNoProgress    = "no-progress"
)

// Extract holds the resolved settings for the extract command.
type Extract struct {
	SampleHeight  int
	Saturation    float64
	Luminance     float64
	Clusters      int
	MaxIterations int
	Start         string
	End           string
	Top           int
	Format        string
	Output        string
	Preview       bool
	Workers       int
	SeedMode      string
	Seed          *int64
	NoProgress    bool
}

// New creates a viper instance with defaults and environment binding, and
// reads configFile if given. With no configFile the default location is
// tried and silently skipped when absent.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	defaults := colour.DefaultExtractorConfig()
	v.SetDefault(KeySaturation, defaults.Saturation)
	v.SetDefault(KeyLuminance, defaults.Luminance)
	v.SetDefault(KeyResizeHeight, defaults.SampleHeight)
	v.SetDefault(KeyClusters, defaults.Clusters)
	v.SetDefault(KeyMaxIterations, defaults.MaxIterations)
	v.SetDefault(KeyTop, 10)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeySeedMode, string(seed.ModeContent))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		path, err := DefaultPath()
		if err != nil {
			return v, nil
		}
		configFile = path
	}

	path, err := homedir.Expand(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

// DefaultPath returns ~/.config/reel/config.yaml, honouring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "reel", "config.yaml"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reel", "config.yaml"), nil
}

// BindFlags makes explicitly set flags take precedence over every other source.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// LoadExtract reads the extract settings out of v.
func LoadExtract(v *viper.Viper) Extract {
	e := Extract{
		SampleHeight:  v.GetInt(KeyResizeHeight),
		Saturation:    v.GetFloat64(KeySaturation),
		Luminance:     v.GetFloat64(KeyLuminance),
		Clusters:      v.GetInt(KeyClusters),
		MaxIterations: v.GetInt(KeyMaxIterations),
		Start:         v.GetString(KeyStart),
		End:           v.GetString(KeyEnd),
		Top:           v.GetInt(KeyTop),
		Format:        v.GetString(KeyFormat),
		Output:        v.GetString(KeyOutput),
		Preview:       v.GetBool(KeyPreview),
		Workers:       v.GetInt(KeyWorkers),
		SeedMode:      v.GetString(KeySeedMode),
		NoProgress:    v.GetBool(KeyNoProgress),
	}
	if v.IsSet(KeySeed) {
		s := v.GetInt64(KeySeed)
		e.Seed = &s
	}
	return e
}

// ExtractorConfig converts the settings into a validated colour configuration.
func (e Extract) ExtractorConfig() (colour.ExtractorConfig, error) {
	cfg := colour.ExtractorConfig{
		SampleHeight:  e.SampleHeight,
		Saturation:    e.Saturation,
		Luminance:     e.Luminance,
		Clusters:      e.Clusters,
		MaxIterations: e.MaxIterations,
	}
	if err := cfg.Validate(); err != nil {
		return colour.ExtractorConfig{}, err
	}
	if e.Workers < 1 {
		return colour.ExtractorConfig{}, fmt.Errorf("%w: workers must be at least 1, got %d", colour.ErrInvalidConfig, e.Workers)
	}
	return cfg, nil
}

// Window parses the start and end timestamps.
func (e Extract) Window() (video.Window, error) {
	var w video.Window
	var err error
	if e.Start != "" {
		if w.Start, err = video.ParseTimestamp(e.Start); err != nil {
			return video.Window{}, fmt.Errorf("%w: start: %w", colour.ErrInvalidConfig, err)
		}
	}
	if e.End != "" {
		if w.End, err = video.ParseTimestamp(e.End); err != nil {
			return video.Window{}, fmt.Errorf("%w: end: %w", colour.ErrInvalidConfig, err)
		}
	}
	if err := w.Validate(); err != nil {
		return video.Window{}, fmt.Errorf("%w: %w", colour.ErrInvalidConfig, err)
	}
	return w, nil
}

// SeedConfig parses the seed settings.
func (e Extract) SeedConfig() (seed.Config, error) {
	mode, err := seed.ParseMode(e.SeedMode)
	if err != nil {
		return seed.Config{}, fmt.Errorf("%w: %w", colour.ErrInvalidConfig, err)
	}
	if mode == seed.ModeManual && e.Seed == nil {
		return seed.Config{}, fmt.Errorf("%w: --seed is required with --seed-mode manual", colour.ErrInvalidConfig)
	}
	return seed.Config{Mode: mode, Value: e.Seed}, nil
}
