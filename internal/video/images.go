package video

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"

	imageloader "github.com/jmylchreest/reel/internal/image"
)

// ImageOpener treats a still image, or a directory of images in lexical
// order, as a frame sequence. Frames are decoded lazily.
type ImageOpener struct {
	loader imageloader.Loader
}

// NewImageOpener creates an ImageOpener backed by the filesystem loader.
func NewImageOpener() *ImageOpener {
	return &ImageOpener{loader: imageloader.NewFileLoader()}
}

// Open resolves the path into a list of image files. Time windows only make
// sense for videos and are rejected.
func (o *ImageOpener) Open(ctx context.Context, path string, window Window) (Frames, error) {
	if !window.IsZero() {
		return nil, fmt.Errorf("%w: a time window cannot be applied to images", ErrSourceOpen)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceOpen, err)
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = imageloader.ScanDirectoryForImages(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceOpen, err)
		}
	} else if _, _, err := imageloader.GetImageDimensions(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceOpen, err)
	}

	return &imageFrames{ctx: ctx, loader: o.loader, paths: paths}, nil
}

type imageFrames struct {
	ctx    context.Context
	loader imageloader.Loader
	paths  []string
	pos    int
}

func (f *imageFrames) Next() (image.Image, error) {
	if f.pos >= len(f.paths) {
		return nil, io.EOF
	}
	if err := f.ctx.Err(); err != nil {
		return nil, err
	}

	img, err := f.loader.Load(f.paths[f.pos])
	if err != nil {
		return nil, &DecodeError{Frame: f.pos, Err: err}
	}
	f.pos++
	return img, nil
}

func (f *imageFrames) Len() int {
	return len(f.paths)
}

func (f *imageFrames) Close() error {
	f.pos = len(f.paths)
	return nil
}
