package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// LibraryReader recognizes text through the linked tesseract library.
// A client is not safe to share across goroutines; construct one reader
// per worker.
type LibraryReader struct {
	client *gosseract.Client
}

// NewLibraryReader creates a linked-library reader. tessdata may be
// empty to use the library's default data path.
func NewLibraryReader(tessdata string) (*LibraryReader, error) {
	client := gosseract.NewClient()
	if tessdata != "" {
		client.TessdataPrefix = tessdata
	}
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return &LibraryReader{client: client}, nil
}

// TextFrom implements TextReader.
func (r *LibraryReader) TextFrom(region gocv.Mat) (string, error) {
	if region.Empty() {
		return "", fmt.Errorf("empty region")
	}
	png, err := encodePNG(region)
	if err != nil {
		return "", err
	}
	if err := r.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return firstLine(text), nil
}

// Close releases the tesseract client.
func (r *LibraryReader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
