// Package seed provides deterministic seed generation for k-means clustering,
// so the same input produces the same palette on every run.
package seed

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"time"

	"github.com/jmylchreest/reel/internal/colour"
)

// Mode determines how the random seed for k-means clustering is generated.
type Mode string

const (
	// ModeContent generates seed from the colour ranking (default, deterministic by content).
	ModeContent Mode = "content"
	// ModeFilepath generates seed from absolute file path hash (deterministic by path).
	ModeFilepath Mode = "filepath"
	// ModeManual uses a user-provided seed value.
	ModeManual Mode = "manual"
	// ModeRandom uses non-deterministic random seed (varies each run).
	ModeRandom Mode = "random"
)

// Config holds configuration for seed generation.
type Config struct {
	Mode  Mode   // Seed mode
	Value *int64 // Seed value (only used when Mode is ModeManual)
}

// Calculate determines the seed value based on the seed mode.
// ranking: the colour ranking (required for ModeContent)
// path: the source path (required for ModeFilepath)
func Calculate(ranking colour.Ranking, path string, config Config) (int64, error) {
	switch config.Mode {
	case ModeContent:
		return CalculateContentSeed(ranking), nil
	case ModeFilepath:
		if path == "" {
			return 0, fmt.Errorf("source path is required for filepath-based seed mode")
		}
		return CalculateFilepathSeed(path), nil
	case ModeManual:
		if config.Value == nil {
			return 0, fmt.Errorf("seed value is required for manual seed mode")
		}
		return *config.Value, nil
	case ModeRandom:
		return GenerateRandomSeed(), nil
	default:
		return 0, fmt.Errorf("unknown seed mode: %s", config.Mode)
	}
}

// CalculateContentSeed hashes the ranking, so identical rankings always
// cluster identically regardless of where the video came from.
func CalculateContentSeed(ranking colour.Ranking) int64 {
	hasher := sha256.New()

	entry := make([]byte, 11)
	for _, f := range ranking {
		entry[0] = f.Colour.R
		entry[1] = f.Colour.G
		entry[2] = f.Colour.B
		binary.LittleEndian.PutUint64(entry[3:], uint64(f.Count)) // #nosec G115 -- counts are positive
		hasher.Write(entry)
	}

	hash := hasher.Sum(nil)
	return int64(binary.LittleEndian.Uint64(hash[:8])) // #nosec G115 -- hash conversion is safe
}

// CalculateFilepathSeed generates a deterministic seed from the absolute file path.
func CalculateFilepathSeed(path string) int64 {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	hash := sha256.Sum256([]byte(absPath))
	return int64(binary.LittleEndian.Uint64(hash[:8])) // #nosec G115 -- hash conversion is safe
}

// GenerateRandomSeed generates a non-deterministic random seed.
func GenerateRandomSeed() int64 {
	// #nosec G404 -- Random seed generation is intentionally non-deterministic
	return time.Now().UnixNano() + int64(rand.Intn(1000000))
}

// ValidModes returns a list of valid seed modes.
func ValidModes() []Mode {
	return []Mode{ModeContent, ModeFilepath, ModeManual, ModeRandom}
}

// ParseMode converts a string to a Mode.
// Returns an error if the string is not a valid mode.
func ParseMode(s string) (Mode, error) {
	mode := Mode(s)
	if slices.Contains(ValidModes(), mode) {
		return mode, nil
	}
	return "", fmt.Errorf("invalid seed mode: %s (valid: content, filepath, manual, random)", s)
}
