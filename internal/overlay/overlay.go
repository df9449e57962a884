// Package overlay paints verdict-colored highlights back onto a scored
// sheet for visual review.
package overlay

import (
	"image"

	"gocv.io/x/gocv"

	"quikscore/internal/scoring"
	"quikscore/internal/template"
	"quikscore/pkg/geometry"
)

// Opacity is the blend weight of the verdict tint.
const Opacity = 0.30

// Verdict tints in BGR order: green correct, red incorrect, blue
// missing. NotCounted regions stay untouched.
var (
	correctTint   = gocv.NewScalar(0, 200, 0, 0)
	incorrectTint = gocv.NewScalar(0, 0, 220, 0)
	missingTint   = gocv.NewScalar(220, 80, 0, 0)
)

// Render produces a BGR copy of the cropped sheet with each question's
// answer rows and number gutter alpha-blended by verdict. It uses the
// same template geometry as region extraction, so the highlights land
// on the bubbles they grade.
func Render(gray gocv.Mat, result *scoring.Result) gocv.Mat {
	dst := gocv.NewMat()
	gocv.CvtColor(gray, &dst, gocv.ColorGrayToBGR)

	w, h := dst.Cols(), dst.Rows()
	for i := range result.Questions {
		question := result.Questions[i]
		block := template.QuestionBlock(i, w, h)

		if tint, ok := tintFor(question.Rollup()); ok {
			blend(&dst, template.Gutter(block), tint)
		}
		for r := 0; r < template.RowsPerQuestion; r++ {
			if tint, ok := tintFor(question.At(r).Verdict); ok {
				blend(&dst, template.AnswerRow(block, r), tint)
			}
		}
	}
	return dst
}

func tintFor(v scoring.Verdict) (gocv.Scalar, bool) {
	switch v {
	case scoring.Correct:
		return correctTint, true
	case scoring.Incorrect:
		return incorrectTint, true
	case scoring.Missing:
		return missingTint, true
	default:
		return gocv.Scalar{}, false
	}
}

// blend alpha-blends a solid tint over one rectangle of dst.
func blend(dst *gocv.Mat, rect geometry.RectInt, tint gocv.Scalar) {
	rect = rect.Clamp(dst.Cols(), dst.Rows())
	if rect.Empty() {
		return
	}
	region := dst.Region(image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height))
	defer region.Close()

	fill := gocv.NewMatWithSizeFromScalar(tint, region.Rows(), region.Cols(), gocv.MatTypeCV8UC3)
	defer fill.Close()

	gocv.AddWeighted(region, 1-Opacity, fill, Opacity, 0, &region)
}
