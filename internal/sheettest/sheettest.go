// Package sheettest renders synthetic answer-sheet images for tests:
// fiducial triangles plus filled bubbles at template positions. The
// regions are computed with the same template functions the decoder
// uses, so fixtures and decoder share one source of layout truth.
package sheettest

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"quikscore/internal/template"
	"quikscore/pkg/geometry"
)

// Canvas geometry. The fiducial centroids span a 1200x1700 sheet crop
// with a 25px page margin around it.
const (
	CanvasWidth  = 1250
	CanvasHeight = 1750
	SheetWidth   = 1200
	SheetHeight  = 1700

	originX = 25
	originY = 25
)

// markInsetFrac is the per-side inset of a filled mark within its
// cell. A centered rectangle inset by an eighth per side covers about
// 56% of the cell, comfortably above the default fill threshold, while
// keeping a pixel margin against neighboring cells.
const markInsetFrac = 0.125

var black = color.RGBA{A: 255}

// Spec describes one synthetic sheet.
type Spec struct {
	// Subject and Student are the digits to bubble into the ID blocks.
	Subject string
	Student string
	// Marks maps question index (0-based) to answer row (0=A..4=E) to
	// the marked cell indices of that 13-cell row.
	Marks map[int]map[int][]int
}

// Render draws the sheet onto a fresh grayscale canvas. The caller owns
// the returned Mat.
func Render(spec Spec) gocv.Mat {
	canvas := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(255, 0, 0, 0), CanvasHeight, CanvasWidth, gocv.MatTypeCV8UC1)

	drawFiducial(&canvas, originX, originY)
	drawFiducial(&canvas, originX+SheetWidth, originY)
	drawFiducial(&canvas, originX, originY+SheetHeight)

	drawID(&canvas, template.SubjectIDBlock(SheetWidth, SheetHeight), template.SubjectDigits, spec.Subject)
	drawID(&canvas, template.StudentIDBlock(SheetWidth, SheetHeight), template.StudentDigits, spec.Student)

	for q, rows := range spec.Marks {
		block := template.QuestionBlock(q, SheetWidth, SheetHeight)
		for r, cells := range rows {
			rowCells := template.SplitCols(template.AnswerRow(block, r), template.CellsPerRow)
			for _, cell := range cells {
				fillCell(&canvas, rowCells[cell])
			}
		}
	}
	return canvas
}

// Write renders the sheet to a PNG under a test temp dir and returns
// its path.
func Write(tb testing.TB, spec Spec) string {
	tb.Helper()
	mat := Render(spec)
	defer mat.Close()

	path := filepath.Join(tb.TempDir(), "sheet.png")
	if ok := gocv.IMWrite(path, mat); !ok {
		tb.Fatalf("write fixture %s failed", path)
	}
	return path
}

// drawFiducial draws a solid triangle whose area centroid lands on
// (x, y).
func drawFiducial(canvas *gocv.Mat, x, y int) {
	tri := []image.Point{
		{X: x - 15, Y: y - 10},
		{X: x + 15, Y: y - 10},
		{X: x, Y: y + 20},
	}
	pts := gocv.NewPointsVectorFromPoints([][]image.Point{tri})
	defer pts.Close()
	gocv.FillPoly(canvas, pts, black)
}

// drawID bubbles the digits of value into an ID block of the given
// column count.
func drawID(canvas *gocv.Mat, block geometry.RectInt, columns int, value string) {
	cols := template.SplitCols(block, columns)
	for i, r := range value {
		if i >= columns {
			break
		}
		rows := template.SplitRows(cols[i], template.DigitRows)
		fillCell(canvas, rows[int(r-'0')])
	}
}

// fillCell blacks out the center of a template cell, offset to canvas
// coordinates.
func fillCell(canvas *gocv.Mat, cell geometry.RectInt) {
	dx := int(markInsetFrac * float64(cell.Width))
	dy := int(markInsetFrac * float64(cell.Height))
	gocv.Rectangle(canvas, image.Rect(
		originX+cell.X+dx,
		originY+cell.Y+dy,
		originX+cell.X+cell.Width-dx,
		originY+cell.Y+cell.Height-dy,
	), black, -1)
}
