package colour

import (
	"errors"
	"fmt"
	"image"
)

const (
	// WhiteThreshold excludes pixels whose channels are all at or above it.
	WhiteThreshold = 250

	// BlackThreshold excludes pixels whose channels are all at or below it.
	BlackThreshold = 5
)

var (
	// ErrInvalidConfig is returned for degenerate extraction or clustering parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidClusterCount is returned when fewer than one cluster is requested.
	ErrInvalidClusterCount = fmt.Errorf("%w: cluster count must be at least 1", ErrInvalidConfig)

	// ErrEmptyInput is returned when clustering is requested on an empty ranking.
	ErrEmptyInput = errors.New("no colours to cluster")
)

// ExtractorConfig holds configuration for colour extraction and clustering.
type ExtractorConfig struct {
	SampleHeight  int
	Saturation    float64
	Luminance     float64
	Clusters      int
	MaxIterations int
}

// DefaultExtractorConfig returns the default extractor configuration.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SampleHeight:  12,
		Saturation:    0.0,
		Luminance:     0.0,
		Clusters:      5,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate validates the extractor configuration.
func (c ExtractorConfig) Validate() error {
	if c.SampleHeight < 1 {
		return fmt.Errorf("%w: sample height must be at least 1, got %d", ErrInvalidConfig, c.SampleHeight)
	}
	if c.Saturation < 0 || c.Saturation > 1 {
		return fmt.Errorf("%w: saturation threshold must be within 0.0-1.0, got %g", ErrInvalidConfig, c.Saturation)
	}
	if c.Luminance < 0 || c.Luminance > 1 {
		return fmt.Errorf("%w: luminance threshold must be within 0.0-1.0, got %g", ErrInvalidConfig, c.Luminance)
	}
	if c.Clusters < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidClusterCount, c.Clusters)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	return nil
}

// FrameExtractor selects the pixel colours of a frame that pass the
// brightness and colourfulness filters.
type FrameExtractor struct {
	sampleHeight int
	saturation   float64
	luminance    float64
}

// NewFrameExtractor creates a FrameExtractor from the given configuration.
func NewFrameExtractor(cfg ExtractorConfig) *FrameExtractor {
	return &FrameExtractor{
		sampleHeight: cfg.SampleHeight,
		saturation:   cfg.Saturation,
		luminance:    cfg.Luminance,
	}
}

// Extract resizes the frame to the sample height and returns every pixel
// colour that survives filtering. Duplicates are kept.
func (e *FrameExtractor) Extract(frame image.Image) []RGB {
	if frame == nil || frame.Bounds().Dy() == 0 || frame.Bounds().Dx() == 0 {
		return nil
	}

	sampled := Resize(frame, e.sampleHeight)
	b := sampled.Bounds()

	colours := make([]RGB, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := sampled.PixOffset(x, y)
			px := RGB{R: sampled.Pix[off], G: sampled.Pix[off+1], B: sampled.Pix[off+2]}
			if e.Keep(px) {
				colours = append(colours, px)
			}
		}
	}
	return colours
}

// Keep reports whether a single colour passes the filters.
func (e *FrameExtractor) Keep(c RGB) bool {
	if IsNearWhite(c) || IsNearBlack(c) {
		return false
	}
	_, s, v := c.HSV()
	return atLeast(s, e.saturation) && atLeast(v, e.luminance)
}

// thresholdEpsilon absorbs float error in HSV conversion, so a channel ratio
// that equals a threshold exactly (51/255 against 0.2) is not rejected.
const thresholdEpsilon = 1e-9

func atLeast(v, threshold float64) bool {
	return v >= threshold-thresholdEpsilon
}

// IsNearWhite reports whether every channel is at or above WhiteThreshold.
func IsNearWhite(c RGB) bool {
	return c.R >= WhiteThreshold && c.G >= WhiteThreshold && c.B >= WhiteThreshold
}

// IsNearBlack reports whether every channel is at or below BlackThreshold.
func IsNearBlack(c RGB) bool {
	return c.R <= BlackThreshold && c.G <= BlackThreshold && c.B <= BlackThreshold
}
