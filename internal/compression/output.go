// Package compression writes and reads result files, compressing them
// according to their extension.
package compression

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Format identifies a compression format by file extension.
type Format string

const (
	FormatNone Format = ""
	FormatXz   Format = ".xz"
	FormatGzip Format = ".gz"
)

// DetectFormat returns the compression format implied by the path.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		return FormatXz
	case ".gz":
		return FormatGzip
	default:
		return FormatNone
	}
}

// fileWriter closes the compressor before the file beneath it.
type fileWriter struct {
	io.Writer
	compressor io.Closer
	file       *os.File
}

func (w *fileWriter) Close() error {
	var compErr error
	if w.compressor != nil {
		compErr = w.compressor.Close()
	}
	fileErr := w.file.Close()
	if compErr != nil {
		return fmt.Errorf("failed to finish compressed stream: %w", compErr)
	}
	return fileErr
}

// Create creates path and returns a writer that compresses according to
// its extension. The caller must Close it to flush the stream.
func Create(path string) (io.WriteCloser, error) {
	file, err := os.Create(path) // #nosec G304 - User-specified output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch DetectFormat(path) {
	case FormatXz:
		xzw, err := xz.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return &fileWriter{Writer: xzw, compressor: xzw, file: file}, nil
	case FormatGzip:
		gzw := gzip.NewWriter(file)
		return &fileWriter{Writer: gzw, compressor: gzw, file: file}, nil
	default:
		return &fileWriter{Writer: file, file: file}, nil
	}
}

// ReadFile reads path, decompressing according to its extension.
func ReadFile(path string) ([]byte, error) {
	file, err := os.Open(path) // #nosec G304 - User-specified path
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	switch DetectFormat(path) {
	case FormatXz:
		xzr, err := xz.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xzr
	case FormatGzip:
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return data, nil
}
