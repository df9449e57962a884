// Package template holds the calibrated physical layout of the printed
// answer sheet: every named region as a fractional rectangle relative to
// the fiducial-cropped sheet. The layout is fixed: calibrated once
// against the printed form, never auto-discovered.
package template

import "quikscore/pkg/geometry"

// Grid dimensions of the printed form.
const (
	// QuestionCount question blocks, arranged column-major in
	// QuestionColumns columns of QuestionRows blocks each.
	QuestionCount   = 36
	QuestionColumns = 4
	QuestionRows    = 9

	// RowsPerQuestion answer rows (A..E) per question block.
	RowsPerQuestion = 5
	// CellsPerRow bubble cells per answer row: 3 sign cells then 10
	// digit cells.
	CellsPerRow = 13

	// SubjectDigits and StudentDigits are the widths of the bubble-coded
	// ID blocks; each digit column has DigitRows cells for 0-9.
	SubjectDigits = 2
	StudentDigits = 9
	DigitRows     = 10
)

// Fractional layout constants, measured against the printed template.
const (
	questionAreaTop = 0.45
	questionMarginX = 0.03
	blockWidth      = 0.20
	blockPitchX     = 0.24 // width + horizontal gap
	blockHeight     = 0.052
	blockPitchY     = 0.058 // height + vertical gap

	// gutterFrac is the left share of a question block occupied by the
	// printed question number.
	gutterFrac = 0.15
)

var (
	subjectIDBlock = geometry.FracRect{X0: 0.05, X1: 0.13, Y0: 0.10, Y1: 0.40}
	studentIDBlock = geometry.FracRect{X0: 0.16, X1: 0.52, Y0: 0.10, Y1: 0.40}

	studentNameField = geometry.FracRect{X0: 0.56, X1: 0.95, Y0: 0.10, Y1: 0.145}
	subjectNameField = geometry.FracRect{X0: 0.56, X1: 0.95, Y0: 0.15, Y1: 0.195}
	examRoomField    = geometry.FracRect{X0: 0.56, X1: 0.75, Y0: 0.20, Y1: 0.245}
	examSeatField    = geometry.FracRect{X0: 0.77, X1: 0.95, Y0: 0.20, Y1: 0.245}
)

// SubjectIDBlock resolves the subject-ID bubble block for a w×h sheet.
func SubjectIDBlock(w, h int) geometry.RectInt {
	return subjectIDBlock.Resolve(w, h)
}

// StudentIDBlock resolves the student-ID bubble block for a w×h sheet.
func StudentIDBlock(w, h int) geometry.RectInt {
	return studentIDBlock.Resolve(w, h)
}

// TextFields are the handwritten regions read by OCR cross-validation.
type TextFields struct {
	StudentName geometry.RectInt
	SubjectName geometry.RectInt
	ExamRoom    geometry.RectInt
	ExamSeat    geometry.RectInt
}

// ResolveTextFields resolves the free-text field rectangles for a w×h sheet.
func ResolveTextFields(w, h int) TextFields {
	return TextFields{
		StudentName: studentNameField.Resolve(w, h),
		SubjectName: subjectNameField.Resolve(w, h),
		ExamRoom:    examRoomField.Resolve(w, h),
		ExamSeat:    examSeatField.Resolve(w, h),
	}
}

// QuestionBlock resolves question block i (0-based, column-major: the
// first column holds questions 1-9 top to bottom) for a w×h sheet.
func QuestionBlock(i, w, h int) geometry.RectInt {
	if i < 0 || i >= QuestionCount {
		panic("template: question index out of range")
	}
	col := i / QuestionRows
	row := i % QuestionRows
	f := geometry.FracRect{
		X0: questionMarginX + float64(col)*blockPitchX,
		X1: questionMarginX + float64(col)*blockPitchX + blockWidth,
		Y0: questionAreaTop + float64(row)*blockPitchY,
		Y1: questionAreaTop + float64(row)*blockPitchY + blockHeight,
	}
	return f.Resolve(w, h)
}

// Gutter returns the question-number strip at the left of a block.
func Gutter(block geometry.RectInt) geometry.RectInt {
	return geometry.RectInt{
		X:      block.X,
		Y:      block.Y,
		Width:  int(float64(block.Width) * gutterFrac),
		Height: block.Height,
	}
}

// AnswerRow returns answer row r (0 = A .. 4 = E) of a question block:
// the bubble strip to the right of the gutter.
func AnswerRow(block geometry.RectInt, r int) geometry.RectInt {
	if r < 0 || r >= RowsPerQuestion {
		panic("template: answer row out of range")
	}
	gutter := Gutter(block)
	rows := SplitRows(geometry.RectInt{
		X:      block.X + gutter.Width,
		Y:      block.Y,
		Width:  block.Width - gutter.Width,
		Height: block.Height,
	}, RowsPerQuestion)
	return rows[r]
}

// SplitCols divides a rectangle into n equal-width columns.
func SplitCols(r geometry.RectInt, n int) []geometry.RectInt {
	cols := make([]geometry.RectInt, n)
	for i := 0; i < n; i++ {
		x0 := r.X + i*r.Width/n
		x1 := r.X + (i+1)*r.Width/n
		cols[i] = geometry.RectInt{X: x0, Y: r.Y, Width: x1 - x0, Height: r.Height}
	}
	return cols
}

// SplitRows divides a rectangle into n equal-height rows.
func SplitRows(r geometry.RectInt, n int) []geometry.RectInt {
	rows := make([]geometry.RectInt, n)
	for i := 0; i < n; i++ {
		y0 := r.Y + i*r.Height/n
		y1 := r.Y + (i+1)*r.Height/n
		rows[i] = geometry.RectInt{X: r.X, Y: y0, Width: r.Width, Height: y1 - y0}
	}
	return rows
}
