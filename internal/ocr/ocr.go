// Package ocr provides the pluggable text-extraction capability used to
// read handwritten ID fields: image region in, single line of text out.
//
// Two interchangeable backends exist: a linked tesseract library and a
// tesseract subprocess. Callers must treat construction or per-call
// failure as "cross-validation skipped", never as a sheet failure.
package ocr

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// TextReader extracts a line of text from an image region.
type TextReader interface {
	// TextFrom runs recognition on a region and returns the first line
	// of recognized text, trimmed.
	TextFrom(region gocv.Mat) (string, error)
	Close() error
}

// Backend names accepted by New.
const (
	BackendLibrary = "library"
	BackendCommand = "command"
)

// New constructs the named backend. tessdata may be empty for the
// backend default.
func New(backend, tessdata string) (TextReader, error) {
	switch backend {
	case BackendLibrary:
		return NewLibraryReader(tessdata)
	case BackendCommand:
		return NewCommandReader(tessdata)
	default:
		return nil, fmt.Errorf("unknown OCR backend %q", backend)
	}
}

// firstLine trims recognized text to its first non-empty line.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// encodePNG serializes a region for a backend that consumes image bytes.
func encodePNG(region gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, region)
	if err != nil {
		return nil, fmt.Errorf("encode region: %w", err)
	}
	defer buf.Close()
	bytes := make([]byte, len(buf.GetBytes()))
	copy(bytes, buf.GetBytes())
	return bytes, nil
}
