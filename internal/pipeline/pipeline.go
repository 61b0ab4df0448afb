// Package pipeline wires frame extraction, frequency aggregation and
// clustering into a single run over a frame source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/reel/internal/colour"
	"github.com/jmylchreest/reel/internal/progress"
	"github.com/jmylchreest/reel/internal/video"
)

// Options controls how frames are aggregated.
type Options struct {
	// Workers is the number of goroutines extracting colours. Values below
	// 2 process frames serially on the calling goroutine.
	Workers int

	Progress progress.Reporter
	Logger   hclog.Logger
}

func (o Options) withDefaults() Options {
	if o.Progress == nil {
		o.Progress = progress.Nop{}
	}
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
	return o
}

// Aggregation is the outcome of tallying every frame of a source.
type Aggregation struct {
	Ranking colour.Ranking
	Frames  int
	Pixels  int
}

// Aggregate pulls every frame from the source, extracts its colours and
// tallies them into a ranking. Any source error aborts the run and no
// ranking is returned.
func Aggregate(ctx context.Context, frames video.Frames, extractor *colour.FrameExtractor, opts Options) (*Aggregation, error) {
	opts = opts.withDefaults()
	opts.Progress.Start(frames.Len())

	var (
		tally     *colour.Tally
		processed int
		err       error
	)
	if opts.Workers > 1 {
		tally, processed, err = aggregateParallel(ctx, frames, extractor, opts)
	} else {
		tally, processed, err = aggregateSerial(ctx, frames, extractor, opts)
	}
	if err != nil {
		opts.Progress.Finish("")
		return nil, err
	}

	opts.Progress.Finish("Colour extraction complete!")
	opts.Logger.Debug("aggregation complete", "frames", processed,
		"pixels", tally.Pixels(), "distinct", tally.Len())

	return &Aggregation{
		Ranking: tally.Ranking(),
		Frames:  processed,
		Pixels:  tally.Pixels(),
	}, nil
}

func aggregateSerial(ctx context.Context, frames video.Frames, extractor *colour.FrameExtractor, opts Options) (*colour.Tally, int, error) {
	tally := colour.NewTally()
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, processed, err
		}
		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			return tally, processed, nil
		}
		if err != nil {
			return nil, processed, frameError(processed, err)
		}
		tally.Add(extractor.Extract(frame))
		processed++
		opts.Progress.Advance(1)
	}
}

// aggregateParallel reads frames on one goroutine into a bounded channel,
// extracts them on opts.Workers goroutines, and tallies every result on the
// calling goroutine, which is the only owner of the tally.
func aggregateParallel(ctx context.Context, frames video.Frames, extractor *colour.FrameExtractor, opts Options) (*colour.Tally, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan image.Image, opts.Workers)
	results := make(chan []colour.RGB, opts.Workers)

	readDone := make(chan error, 1)
	go func() {
		defer close(jobs)
		read := 0
		for {
			frame, err := frames.Next()
			if errors.Is(err, io.EOF) {
				readDone <- nil
				return
			}
			if err != nil {
				readDone <- frameError(read, err)
				return
			}
			select {
			case jobs <- frame:
				read++
			case <-ctx.Done():
				readDone <- nil
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for frame := range jobs {
				colours := extractor.Extract(frame)
				select {
				case results <- colours:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	tally := colour.NewTally()
	processed := 0
	for colours := range results {
		tally.Add(colours)
		processed++
		opts.Progress.Advance(1)
	}

	if err := <-readDone; err != nil {
		return nil, processed, err
	}
	if err := ctx.Err(); err != nil {
		return nil, processed, err
	}
	return tally, processed, nil
}

func frameError(processed int, err error) error {
	var decodeErr *video.DecodeError
	if errors.As(err, &decodeErr) || errors.Is(err, video.ErrSourceOpen) {
		return err
	}
	return &video.DecodeError{Frame: processed, Err: err}
}

// Result is the terminal artifact of a run, handed to formatting as data.
type Result struct {
	Source   string           `json:"source"`
	Frames   int              `json:"frames"`
	Pixels   int              `json:"pixels"`
	Seed     int64            `json:"seed"`
	Ranking  colour.Ranking   `json:"ranking"`
	Clusters []colour.Cluster `json:"clusters"`
}

// Config bundles everything a full run needs.
type Config struct {
	Source    string
	Window    video.Window
	Extractor colour.ExtractorConfig
	// Seed returns the k-means seed once the ranking is known.
	Seed    func(colour.Ranking) (int64, error)
	Options Options
}

// Run opens the source, aggregates it and clusters the ranking.
func Run(ctx context.Context, opener video.Opener, cfg Config) (*Result, error) {
	if err := cfg.Extractor.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Window.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", colour.ErrInvalidConfig, err)
	}
	opts := cfg.Options.withDefaults()

	frames, err := opener.Open(ctx, cfg.Source, cfg.Window)
	if err != nil {
		return nil, err
	}
	defer frames.Close()

	opts.Logger.Info("extracting colours", "source", cfg.Source,
		"frames", frames.Len(), "sample_height", cfg.Extractor.SampleHeight)

	agg, err := Aggregate(ctx, frames, colour.NewFrameExtractor(cfg.Extractor), opts)
	if err != nil {
		return nil, err
	}

	var seed int64 = 1
	if cfg.Seed != nil {
		if seed, err = cfg.Seed(agg.Ranking); err != nil {
			return nil, err
		}
	}

	km := colour.NewKMeans(colour.WithSeed(seed), colour.WithMaxIterations(cfg.Extractor.MaxIterations))
	clusters, err := km.Cluster(agg.Ranking, cfg.Extractor.Clusters)
	if err != nil {
		return nil, fmt.Errorf("clustering %d colours from %d frames: %w", len(agg.Ranking), agg.Frames, err)
	}
	opts.Logger.Debug("clustering complete", "clusters", len(clusters), "seed", seed)

	return &Result{
		Source:   cfg.Source,
		Frames:   agg.Frames,
		Pixels:   agg.Pixels,
		Seed:     seed,
		Ranking:  agg.Ranking,
		Clusters: clusters,
	}, nil
}
