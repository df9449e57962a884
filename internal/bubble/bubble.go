// Package bubble turns sheet regions into marked-cell readings via
// per-cell fill ratios.
//
// Fill ratio convention: the fraction of ink pixels (grayscale value
// below the intensity cutoff) within a cell, so 0 is blank paper and 1
// is fully dark. A cell counts as marked when its ratio clears the
// fill threshold. Both constants are calibration values, not fixed
// magic numbers.
package bubble

import (
	"errors"
	"image"
	"sort"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"quikscore/internal/template"
	"quikscore/pkg/geometry"
)

// ErrTooLittleAnswers indicates a region subdivided into fewer usable
// bubble cells than the template expects, usually a cropped photo or template
// mismatch. It aborts that one sheet, not the batch.
var ErrTooLittleAnswers = errors.New("detected fewer answer cells than the template expects")

// Params are the fill-ratio calibration constants.
type Params struct {
	// IntensityCutoff: pixels darker than this count as ink.
	IntensityCutoff float64
	// FillThreshold: minimum fill ratio for a cell to count as marked.
	FillThreshold float64
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{IntensityCutoff: 128, FillThreshold: 0.45}
}

// FillRatio computes the ink fraction of one cell of a grayscale sheet.
func FillRatio(gray gocv.Mat, cell geometry.RectInt, p Params) float64 {
	cell = cell.Clamp(gray.Cols(), gray.Rows())
	if cell.Empty() {
		return 0
	}
	region := gray.Region(image.Rect(cell.X, cell.Y, cell.X+cell.Width, cell.Y+cell.Height))
	defer region.Close()

	ink := gocv.NewMat()
	defer ink.Close()
	gocv.Threshold(region, &ink, float32(p.IntensityCutoff), 255, gocv.ThresholdBinaryInv)

	return float64(gocv.CountNonZero(ink)) / float64(cell.Area())
}

// Ratios computes the fill ratio of every cell.
func Ratios(gray gocv.Mat, cells []geometry.RectInt, p Params) ([]float64, error) {
	ratios := make([]float64, len(cells))
	for i, cell := range cells {
		if cell.Clamp(gray.Cols(), gray.Rows()).Empty() {
			return nil, ErrTooLittleAnswers
		}
		ratios[i] = FillRatio(gray, cell, p)
	}
	return ratios, nil
}

// Marked returns the indices of threshold-clearing cells, most-filled
// first. The ranking is deterministic: ties break on cell index.
func Marked(ratios []float64, p Params) []int {
	var marked []int
	for i, r := range ratios {
		if r > p.FillThreshold {
			marked = append(marked, i)
		}
	}
	sort.Slice(marked, func(a, b int) bool {
		ra, rb := ratios[marked[a]], ratios[marked[b]]
		if ra != rb {
			return ra > rb
		}
		return marked[a] < marked[b]
	})
	return marked
}

// Contrast summarizes a region's fill-ratio distribution for
// calibration diagnostics.
func Contrast(ratios []float64) (mean, stddev float64) {
	if len(ratios) == 0 {
		return 0, 0
	}
	mean = stat.Mean(ratios, nil)
	stddev = stat.StdDev(ratios, nil)
	return mean, stddev
}

// ReadRow reads one 13-cell answer row, returning the marked cell
// indices most-filled first along with every cell's fill ratio.
func ReadRow(gray gocv.Mat, row geometry.RectInt, p Params) (marked []int, ratios []float64, err error) {
	cells := template.SplitCols(row, template.CellsPerRow)
	ratios, err = Ratios(gray, cells, p)
	if err != nil {
		return nil, nil, err
	}
	return Marked(ratios, p), ratios, nil
}

// ReadDigitColumn reads one ID digit column (ten cells, 0 on top).
// The single most-filled threshold-clearing cell is the digit; a blank
// column returns ok=false.
func ReadDigitColumn(gray gocv.Mat, col geometry.RectInt, p Params) (digit int, ok bool, err error) {
	cells := template.SplitRows(col, template.DigitRows)
	ratios, err := Ratios(gray, cells, p)
	if err != nil {
		return 0, false, err
	}
	marked := Marked(ratios, p)
	if len(marked) == 0 {
		return 0, false, nil
	}
	return marked[0], true, nil
}
