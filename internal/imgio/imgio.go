// Package imgio provides the image ingestion boundary: filesystem path in,
// single-channel grayscale Mat out.
package imgio

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"unicode/utf8"

	"gocv.io/x/gocv"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotImage indicates the file could not be decoded as an image,
	// or decoded to an empty raster.
	ErrNotImage = errors.New("invalid image format")
	// ErrNonUTFPath indicates a path that is not valid UTF-8.
	ErrNonUTFPath = errors.New("non UTF-8 path")
)

// Read loads the file at path as a grayscale image. OpenCV's decoder is
// tried first; formats it may lack (notably WEBP and TIFF depending on
// the build) fall back to Go's image decoders.
func Read(path string) (gocv.Mat, error) {
	if !utf8.ValidString(path) {
		return gocv.Mat{}, ErrNonUTFPath
	}
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if !mat.Empty() {
		return mat, nil
	}
	mat.Close()
	return readFallback(path)
}

// readFallback decodes via the registered Go image formats and converts
// to a grayscale Mat.
func readFallback(path string) (gocv.Mat, error) {
	file, err := os.Open(path)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.Mat{}, ErrNotImage
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return gocv.Mat{}, ErrNotImage
	}

	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert decoded image: %w", err)
	}
	return mat, nil
}

// WritePNG encodes a Mat to a PNG file.
func WritePNG(path string, mat gocv.Mat) error {
	if mat.Empty() {
		return ErrNotImage
	}
	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("write %s: encode failed", path)
	}
	return nil
}

// ResizeRelative returns a copy of mat scaled by factor in both
// dimensions. Used to shrink overlay images for review output.
func ResizeRelative(mat gocv.Mat, factor float64) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Resize(mat, &dst, image.Point{}, factor, factor, gocv.InterpolationLinear)
	return dst
}
