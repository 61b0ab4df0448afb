// Package video provides frame sources that decode videos, still images and
// image sequences into a forward-only stream of frames.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	imageloader "github.com/jmylchreest/reel/internal/image"
)

// ErrSourceOpen is returned when a source cannot be opened or has no frames.
var ErrSourceOpen = errors.New("cannot open video source")

// DecodeError reports a frame that failed to decode mid-stream.
// Frame is the number of frames successfully delivered before the failure.
type DecodeError struct {
	Frame int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed after %d frames: %v", e.Frame, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Window restricts decoding to a time range. A zero Start means the beginning
// of the stream and a zero End means the end of the stream.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// IsZero reports whether the window covers the whole stream.
func (w Window) IsZero() bool {
	return w.Start == 0 && w.End == 0
}

// Validate checks that the window bounds are usable.
func (w Window) Validate() error {
	if w.Start < 0 || w.End < 0 {
		return fmt.Errorf("time window cannot be negative (start %s, end %s)", w.Start, w.End)
	}
	if w.End != 0 && w.End <= w.Start {
		return fmt.Errorf("end time %s must be after start time %s", w.End, w.Start)
	}
	return nil
}

// Frames is a finite, forward-only sequence of decoded frames.
type Frames interface {
	// Next returns the next frame, or io.EOF once the sequence is exhausted.
	Next() (image.Image, error)

	// Len returns the expected number of frames, or 0 if unknown.
	Len() int

	// Close releases the resources held by the sequence.
	Close() error
}

// Opener opens a path as a sequence of frames.
type Opener interface {
	Open(ctx context.Context, path string, window Window) (Frames, error)
}

// NewOpener picks an opener for the path: directories and files with an
// image extension are read as stills, anything else is handed to ffmpeg.
func NewOpener(path string, opts ...FFmpegOption) Opener {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return NewImageOpener()
	}
	if imageloader.IsImageFile(path) {
		return NewImageOpener()
	}
	return NewFFmpegOpener(opts...)
}

// SliceFrames serves frames from memory.
type SliceFrames struct {
	frames []image.Image
	pos    int
}

// NewSliceFrames creates a sequence over already decoded frames.
func NewSliceFrames(frames ...image.Image) *SliceFrames {
	return &SliceFrames{frames: frames}
}

// Next returns the next frame or io.EOF.
func (s *SliceFrames) Next() (image.Image, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Len returns the number of frames.
func (s *SliceFrames) Len() int {
	return len(s.frames)
}

// Close is a no-op.
func (s *SliceFrames) Close() error {
	return nil
}

// ParseTimestamp parses HH:MM:SS, MM:SS or SS, with optional fractional
// seconds, or any Go duration string such as "1m30s".
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("timestamp cannot be empty")
	}

	if !strings.Contains(s, ":") {
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return secondsToDuration(secs)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q (expected HH:MM:SS or a duration like 1m30s)", s)
		}
		if d < 0 {
			return 0, fmt.Errorf("timestamp cannot be negative: %s", s)
		}
		return d, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q (expected HH:MM:SS)", s)
	}

	var total float64
	for i, part := range parts {
		last := i == len(parts)-1
		var v float64
		var err error
		if last {
			v, err = strconv.ParseFloat(part, 64)
		} else {
			var n uint64
			n, err = strconv.ParseUint(part, 10, 32)
			v = float64(n)
		}
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q (expected HH:MM:SS)", s)
		}
		total = total*60 + v
	}
	return secondsToDuration(total)
}

// maxSeconds is the longest timestamp a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

func secondsToDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs > maxSeconds {
		return 0, fmt.Errorf("timestamp out of range: %g", secs)
	}
	if secs < 0 {
		return 0, fmt.Errorf("timestamp cannot be negative: %g", secs)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}
