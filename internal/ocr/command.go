package ocr

import (
	"bytes"
	"fmt"
	"os/exec"

	"gocv.io/x/gocv"
)

// CommandReader recognizes text by piping PNG bytes through a
// `tesseract` subprocess. It exists for environments where linking the
// library is impractical.
type CommandReader struct {
	tessdata string
}

// NewCommandReader verifies tesseract is on PATH and returns a reader.
func NewCommandReader(tessdata string) (*CommandReader, error) {
	if err := exec.Command("tesseract", "--version").Run(); err != nil {
		return nil, fmt.Errorf("tesseract not available: %w", err)
	}
	return &CommandReader{tessdata: tessdata}, nil
}

// TextFrom implements TextReader.
func (r *CommandReader) TextFrom(region gocv.Mat) (string, error) {
	if region.Empty() {
		return "", fmt.Errorf("empty region")
	}
	png, err := encodePNG(region)
	if err != nil {
		return "", err
	}

	args := []string{
		"stdin", "stdout",
		"-l", "eng",
		"--loglevel", "OFF",
		"--psm", "7", // single text line
	}
	if r.tessdata != "" {
		args = append(args, "--tessdata-dir", r.tessdata)
	}

	cmd := exec.Command("tesseract", args...)
	cmd.Stdin = bytes.NewReader(png)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract subprocess: %w", err)
	}
	return firstLine(out.String()), nil
}

// Close implements TextReader; the subprocess backend holds no state.
func (r *CommandReader) Close() error { return nil }
