package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegOpener decodes video files by piping raw RGB frames out of ffmpeg.
type FFmpegOpener struct {
	logger hclog.Logger
}

// FFmpegOption configures an FFmpegOpener.
type FFmpegOption func(*FFmpegOpener)

// WithLogger sets the logger used for ffmpeg diagnostics.
func WithLogger(logger hclog.Logger) FFmpegOption {
	return func(o *FFmpegOpener) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewFFmpegOpener creates an FFmpegOpener.
func NewFFmpegOpener(opts ...FFmpegOption) *FFmpegOpener {
	o := &FFmpegOpener{
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StreamInfo describes the first video stream of a file.
type StreamInfo struct {
	Width     int
	Height    int
	FrameRate float64
	Frames    int
	Duration  time.Duration
}

// FrameRange returns the first frame and the frame after the last one for
// the window, using the rounding of the frame-number based seek.
func (s StreamInfo) FrameRange(w Window) (start, end int) {
	start = int(math.Round(w.Start.Seconds() * s.FrameRate))
	end = s.Frames
	if end == 0 && s.Duration > 0 {
		end = int(math.Round(s.Duration.Seconds() * s.FrameRate))
	}
	if w.End > 0 {
		end = int(math.Round(w.End.Seconds() * s.FrameRate))
		if s.Frames > 0 && end > s.Frames {
			end = s.Frames
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbe extracts StreamInfo from ffprobe JSON output.
func ParseProbe(data []byte) (StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return StreamInfo{}, fmt.Errorf("failed to parse probe output: %w", err)
	}

	for _, st := range out.Streams {
		if st.CodecType != "video" {
			continue
		}
		if st.Width <= 0 || st.Height <= 0 {
			return StreamInfo{}, fmt.Errorf("video stream has invalid dimensions %dx%d", st.Width, st.Height)
		}

		info := StreamInfo{Width: st.Width, Height: st.Height}
		info.FrameRate = parseRate(st.AvgFrameRate)
		if info.FrameRate == 0 {
			info.FrameRate = parseRate(st.RFrameRate)
		}
		if n, err := strconv.Atoi(st.NbFrames); err == nil && n > 0 {
			info.Frames = n
		}
		dur := st.Duration
		if dur == "" || dur == "N/A" {
			dur = out.Format.Duration
		}
		if secs, err := strconv.ParseFloat(dur, 64); err == nil && secs > 0 {
			info.Duration = time.Duration(math.Round(secs * float64(time.Second)))
		}
		return info, nil
	}

	return StreamInfo{}, errors.New("no video stream found")
}

// parseRate parses ffprobe rates such as "30000/1001" or "25".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Probe runs ffprobe on the path and returns its first video stream.
func (o *FFmpegOpener) Probe(path string) (StreamInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("%w: probe %s: %w", ErrSourceOpen, path, err)
	}
	info, err := ParseProbe([]byte(out))
	if err != nil {
		return StreamInfo{}, fmt.Errorf("%w: %s: %w", ErrSourceOpen, path, err)
	}
	return info, nil
}

// Open probes the file and starts ffmpeg decoding the window.
func (o *FFmpegOpener) Open(ctx context.Context, path string, window Window) (Frames, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceOpen, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceOpen, path)
	}

	stream, err := o.Probe(path)
	if err != nil {
		return nil, err
	}

	start, end := stream.FrameRange(window)
	if stream.Frames > 0 && start >= stream.Frames {
		return nil, fmt.Errorf("%w: start time %s is past the end of the video", ErrSourceOpen, window.Start)
	}

	cmd := decodeCommand(ctx, path, window)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stdout pipe: %w", ErrSourceOpen, err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	o.logger.Debug("starting ffmpeg", "args", strings.Join(cmd.Args, " "),
		"width", stream.Width, "height", stream.Height, "fps", stream.FrameRate,
		"first_frame", start, "end_frame", end)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting ffmpeg: %w", ErrSourceOpen, err)
	}

	return &rawFrames{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		width:  stream.Width,
		height: stream.Height,
		total:  end - start,
		buf:    make([]byte, stream.Width*stream.Height*3),
		logger: o.logger,
	}, nil
}

// decodeCommand builds the ffmpeg invocation that writes the window's frames
// as rgb24 to stdout. The command line is logged through hclog by the caller,
// so ffmpeg-go's own stdlib log line is silenced.
func decodeCommand(ctx context.Context, path string, window Window) *exec.Cmd {
	inArgs := ffmpeg.KwArgs{}
	if window.Start > 0 {
		inArgs["ss"] = formatSeconds(window.Start)
	}
	outArgs := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgb24",
		"map":     "0:v:0",
	}
	if window.End > 0 {
		outArgs["t"] = formatSeconds(window.End - window.Start)
	}

	s := ffmpeg.Input(path, inArgs).
		Output("pipe:1", outArgs).
		GlobalArgs("-nostdin", "-loglevel", "error").
		Silent(true)
	s.Context = ctx
	return s.Compile()
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// rawFrames reads rgb24 frames from a running ffmpeg process.
type rawFrames struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	width  int
	height int
	total  int
	buf    []byte
	read   int
	done   bool
	err    error
	logger hclog.Logger
}

func (f *rawFrames) Next() (image.Image, error) {
	if f.done {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}

	_, err := io.ReadFull(f.stdout, f.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		f.finish(nil)
		if f.err != nil {
			return nil, f.err
		}
		if f.read == 0 {
			f.err = fmt.Errorf("%w: no frames decoded", ErrSourceOpen)
			return nil, f.err
		}
		return nil, io.EOF
	default:
		f.finish(err)
		return nil, f.err
	}

	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for src, dst := 0, 0; src < len(f.buf); src, dst = src+3, dst+4 {
		img.Pix[dst] = f.buf[src]
		img.Pix[dst+1] = f.buf[src+1]
		img.Pix[dst+2] = f.buf[src+2]
		img.Pix[dst+3] = 0xff
	}
	f.read++
	return img, nil
}

// finish waits for ffmpeg and records any failure. A failure before the
// first frame means the source could not be opened at all.
func (f *rawFrames) finish(readErr error) {
	f.done = true
	waitErr := f.cmd.Wait()
	if readErr == nil && waitErr == nil {
		return
	}

	cause := readErr
	if cause == nil {
		cause = waitErr
	}
	if msg := strings.TrimSpace(f.stderr.String()); msg != "" {
		cause = fmt.Errorf("%w: %s", cause, msg)
	}
	f.logger.Debug("ffmpeg failed", "frames", f.read, "error", cause)
	if f.read == 0 {
		f.err = fmt.Errorf("%w: no frames decoded: %w", ErrSourceOpen, cause)
		return
	}
	f.err = &DecodeError{Frame: f.read, Err: cause}
}

func (f *rawFrames) Len() int {
	return f.total
}

func (f *rawFrames) Close() error {
	if f.done {
		return nil
	}
	f.done = true
	_ = f.stdout.Close()
	if f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	_ = f.cmd.Wait()
	return nil
}
