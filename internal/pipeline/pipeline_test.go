package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/reel/internal/colour"
	"github.com/jmylchreest/reel/internal/video"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func noiseFrame(rng *rand.Rand, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 0xff
	}
	return img
}

func noiseFrames(n int) []image.Image {
	rng := rand.New(rand.NewSource(11))
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = noiseFrame(rng, 16, 12)
	}
	return frames
}

func sampleExtractor(height int) *colour.FrameExtractor {
	cfg := colour.DefaultExtractorConfig()
	cfg.SampleHeight = height
	return colour.NewFrameExtractor(cfg)
}

// failingFrames delivers good frames and then fails.
type failingFrames struct {
	good []image.Image
	pos  int
	err  error
}

func (f *failingFrames) Next() (image.Image, error) {
	if f.pos < len(f.good) {
		f.pos++
		return f.good[f.pos-1], nil
	}
	return nil, f.err
}

func (f *failingFrames) Len() int     { return len(f.good) + 1 }
func (f *failingFrames) Close() error { return nil }

// recorder is a progress.Reporter that remembers what it was told.
type recorder struct {
	mu       sync.Mutex
	total    int
	advanced int
	finished []string
}

func (r *recorder) Start(total int) { r.total = total }
func (r *recorder) Advance(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced += n
}
func (r *recorder) Finish(msg string) { r.finished = append(r.finished, msg) }

// stubOpener hands out a fixed frame sequence and records whether it was used.
type stubOpener struct {
	frames video.Frames
	err    error
	opened bool
	window video.Window
}

func (o *stubOpener) Open(_ context.Context, _ string, window video.Window) (video.Frames, error) {
	o.opened = true
	o.window = window
	if o.err != nil {
		return nil, o.err
	}
	return o.frames, nil
}

func TestAggregateCountsPixels(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, red)
	frame.SetRGBA(1, 0, red)
	frame.SetRGBA(0, 1, blue)
	frame.SetRGBA(1, 1, white)

	agg, err := Aggregate(context.Background(), video.NewSliceFrames(frame, frame), sampleExtractor(2), Options{})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	want := colour.Ranking{
		{Colour: colour.RGB{R: 255}, Count: 4},
		{Colour: colour.RGB{B: 255}, Count: 2},
	}
	if !reflect.DeepEqual(agg.Ranking, want) {
		t.Errorf("Ranking = %v, want %v", agg.Ranking, want)
	}
	if agg.Frames != 2 {
		t.Errorf("Frames = %d, want 2", agg.Frames)
	}
	if agg.Pixels != 6 || agg.Ranking.Total() != agg.Pixels {
		t.Errorf("Pixels = %d, ranking total = %d, want 6", agg.Pixels, agg.Ranking.Total())
	}
}

func TestAggregateParallelMatchesSerial(t *testing.T) {
	frames := noiseFrames(40)
	extractor := sampleExtractor(6)

	serial, err := Aggregate(context.Background(), video.NewSliceFrames(frames...), extractor, Options{Workers: 1})
	if err != nil {
		t.Fatalf("serial Aggregate() error = %v", err)
	}

	for _, workers := range []int{2, 4, 16} {
		parallel, err := Aggregate(context.Background(), video.NewSliceFrames(frames...), extractor, Options{Workers: workers})
		if err != nil {
			t.Fatalf("Aggregate(workers=%d) error = %v", workers, err)
		}
		if !reflect.DeepEqual(serial, parallel) {
			t.Errorf("Aggregate(workers=%d) differs from serial result", workers)
		}
	}
}

func TestAggregateSourceFailure(t *testing.T) {
	for _, workers := range []int{1, 3} {
		frames := &failingFrames{good: noiseFrames(3), err: errors.New("corrupt packet")}

		agg, err := Aggregate(context.Background(), frames, sampleExtractor(4), Options{Workers: workers})
		if agg != nil {
			t.Errorf("workers=%d: Aggregate() returned a partial ranking", workers)
		}
		var decodeErr *video.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("workers=%d: Aggregate() error = %v, want DecodeError", workers, err)
		}
		if decodeErr.Frame != 3 {
			t.Errorf("workers=%d: DecodeError.Frame = %d, want 3", workers, decodeErr.Frame)
		}
	}
}

func TestAggregateKeepsDecodeError(t *testing.T) {
	cause := &video.DecodeError{Frame: 9, Err: errors.New("bad frame")}
	frames := &failingFrames{good: noiseFrames(1), err: cause}

	_, err := Aggregate(context.Background(), frames, sampleExtractor(4), Options{})
	var decodeErr *video.DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Frame != 9 {
		t.Errorf("Aggregate() error = %v, want the source's DecodeError", err)
	}
}

func TestAggregateEmptySource(t *testing.T) {
	agg, err := Aggregate(context.Background(), video.NewSliceFrames(), sampleExtractor(4), Options{})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(agg.Ranking) != 0 || agg.Frames != 0 {
		t.Errorf("Aggregate() = %+v, want empty", agg)
	}
}

func TestAggregateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := Aggregate(ctx, video.NewSliceFrames(noiseFrames(5)...), sampleExtractor(4), Options{Workers: workers})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: Aggregate() error = %v, want context.Canceled", workers, err)
		}
	}
}

func TestAggregateReportsProgress(t *testing.T) {
	for _, workers := range []int{1, 4} {
		rec := &recorder{}
		_, err := Aggregate(context.Background(), video.NewSliceFrames(noiseFrames(7)...), sampleExtractor(4),
			Options{Workers: workers, Progress: rec})
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if rec.total != 7 || rec.advanced != 7 {
			t.Errorf("workers=%d: progress total/advanced = %d/%d, want 7/7", workers, rec.total, rec.advanced)
		}
		if len(rec.finished) != 1 {
			t.Errorf("workers=%d: Finish called %d times, want 1", workers, len(rec.finished))
		}
	}
}

func TestRun(t *testing.T) {
	red := color.RGBA{R: 220, G: 30, B: 30, A: 255}
	blue := color.RGBA{R: 30, G: 30, B: 220, A: 255}

	// Three red frames for every blue one.
	frames := video.NewSliceFrames(
		solidFrame(16, 9, red), solidFrame(16, 9, red),
		solidFrame(16, 9, blue), solidFrame(16, 9, red),
	)
	opener := &stubOpener{frames: frames}

	cfg := colour.DefaultExtractorConfig()
	cfg.SampleHeight = 9
	cfg.Clusters = 2
	window := video.Window{Start: time.Second}

	result, err := Run(context.Background(), opener, Config{
		Source:    "clip.mp4",
		Window:    window,
		Extractor: cfg,
		Seed:      func(colour.Ranking) (int64, error) { return 5, nil },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if opener.window != window {
		t.Errorf("opener window = %+v, want %+v", opener.window, window)
	}
	if result.Source != "clip.mp4" || result.Frames != 4 || result.Seed != 5 {
		t.Errorf("Run() = source %q frames %d seed %d", result.Source, result.Frames, result.Seed)
	}
	if result.Pixels != 4*16*9 {
		t.Errorf("Pixels = %d, want %d", result.Pixels, 4*16*9)
	}
	if len(result.Ranking) != 2 || result.Ranking[0].Colour != (colour.RGB{R: 220, G: 30, B: 30}) {
		t.Errorf("Ranking = %v, want red first", result.Ranking)
	}

	if len(result.Clusters) != 2 {
		t.Fatalf("Clusters = %d, want 2", len(result.Clusters))
	}
	centroids := map[colour.RGB]int{}
	for _, c := range result.Clusters {
		centroids[c.Centroid] = c.Weight()
	}
	if centroids[colour.RGB{R: 220, G: 30, B: 30}] != 3*16*9 {
		t.Errorf("red cluster weight = %d, want %d", centroids[colour.RGB{R: 220, G: 30, B: 30}], 3*16*9)
	}
	if centroids[colour.RGB{R: 30, G: 30, B: 220}] != 16*9 {
		t.Errorf("blue cluster weight = %d, want %d", centroids[colour.RGB{R: 30, G: 30, B: 220}], 16*9)
	}
}

func TestRunSingleFrame(t *testing.T) {
	red := colour.RGB{R: 255}
	blue := colour.RGB{B: 255}

	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	frame.SetRGBA(1, 0, color.RGBA{R: 255, A: 255})
	frame.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	frame.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	cfg := colour.DefaultExtractorConfig()
	cfg.SampleHeight = 2
	cfg.Clusters = 2

	for _, workers := range []int{1, 2} {
		opener := &stubOpener{frames: video.NewSliceFrames(frame)}
		result, err := Run(context.Background(), opener, Config{
			Source:    "frame.png",
			Extractor: cfg,
			Options:   Options{Workers: workers},
		})
		if err != nil {
			t.Fatalf("workers=%d: Run() error = %v", workers, err)
		}

		wantRanking := colour.Ranking{{Colour: red, Count: 2}, {Colour: blue, Count: 1}}
		if !reflect.DeepEqual(result.Ranking, wantRanking) {
			t.Errorf("workers=%d: Ranking = %v, want %v", workers, result.Ranking, wantRanking)
		}
		if result.Frames != 1 || result.Pixels != 3 {
			t.Errorf("workers=%d: frames/pixels = %d/%d, want 1/3", workers, result.Frames, result.Pixels)
		}

		if len(result.Clusters) != 2 {
			t.Fatalf("workers=%d: Clusters = %d, want 2", workers, len(result.Clusters))
		}
		weights := map[colour.RGB]int{}
		for _, c := range result.Clusters {
			if len(c.Assignments) != 1 || c.Assignments[0].Colour != c.Centroid {
				t.Errorf("workers=%d: cluster %v assignments = %v, want only itself", workers, c.Centroid, c.Assignments)
			}
			weights[c.Centroid] = c.Weight()
		}
		if weights[red] != 2 || weights[blue] != 1 {
			t.Errorf("workers=%d: cluster weights = %v, want red 2 and blue 1", workers, weights)
		}
	}
}

func TestRunAllExcluded(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	opener := &stubOpener{frames: video.NewSliceFrames(solidFrame(8, 8, white), solidFrame(8, 8, white))}

	_, err := Run(context.Background(), opener, Config{Source: "white.mp4", Extractor: colour.DefaultExtractorConfig()})
	if !errors.Is(err, colour.ErrEmptyInput) {
		t.Errorf("Run() error = %v, want ErrEmptyInput", err)
	}
}

func TestRunRejectsInvalidConfigBeforeOpening(t *testing.T) {
	badExtractor := colour.DefaultExtractorConfig()
	badExtractor.SampleHeight = 0

	tests := []struct {
		name string
		cfg  Config
	}{
		{"sample height", Config{Extractor: badExtractor}},
		{"window", Config{
			Extractor: colour.DefaultExtractorConfig(),
			Window:    video.Window{Start: 2 * time.Second, End: time.Second},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &stubOpener{frames: video.NewSliceFrames()}
			_, err := Run(context.Background(), opener, tt.cfg)
			if !errors.Is(err, colour.ErrInvalidConfig) {
				t.Errorf("Run() error = %v, want ErrInvalidConfig", err)
			}
			if opener.opened {
				t.Error("Run() opened the source despite invalid configuration")
			}
		})
	}
}

func TestRunOpenError(t *testing.T) {
	opener := &stubOpener{err: video.ErrSourceOpen}
	_, err := Run(context.Background(), opener, Config{Extractor: colour.DefaultExtractorConfig()})
	if !errors.Is(err, video.ErrSourceOpen) {
		t.Errorf("Run() error = %v, want ErrSourceOpen", err)
	}
}

func TestRunSeedError(t *testing.T) {
	opener := &stubOpener{frames: video.NewSliceFrames(noiseFrames(2)...)}
	seedErr := errors.New("no seed")

	_, err := Run(context.Background(), opener, Config{
		Extractor: colour.DefaultExtractorConfig(),
		Seed:      func(colour.Ranking) (int64, error) { return 0, seedErr },
	})
	if !errors.Is(err, seedErr) {
		t.Errorf("Run() error = %v, want seed error", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	frames := noiseFrames(10)
	cfg := Config{Source: "noise", Extractor: colour.DefaultExtractorConfig()}

	first, err := Run(context.Background(), &stubOpener{frames: video.NewSliceFrames(frames...)}, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	cfg.Options.Workers = 4
	second, err := Run(context.Background(), &stubOpener{frames: video.NewSliceFrames(frames...)}, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Run() results differ between serial and parallel aggregation")
	}
}
