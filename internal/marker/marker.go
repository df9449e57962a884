// Package marker detects the printed fiducial triangles on a scanned
// answer sheet and derives the crop rectangle that aligns the sheet to
// the canonical template orientation.
package marker

import (
	"errors"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"quikscore/pkg/geometry"
)

// ErrMissingMarkers indicates fewer than three usable fiducials were
// found. Blank, rotated or occluded pages hit this; it is a per-sheet
// failure, not a batch failure.
var ErrMissingMarkers = errors.New("answer sheet markers not found")

// Params configures fiducial detection.
type Params struct {
	// Threshold is the grayscale cutoff for the inverse-binary
	// threshold; print below it becomes contour foreground.
	Threshold float64
	// MinArea rejects polygon candidates below this contour area (px²),
	// filtering print specks and staple marks.
	MinArea float64
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{Threshold: 200, MinArea: 100}
}

// Markers holds the centroids of the three corner fiducials.
type Markers struct {
	TopLeft    geometry.Point2D
	TopRight   geometry.Point2D
	BottomLeft geometry.Point2D
}

// CropRect returns the template-aligned crop rectangle spanned by the
// three fiducial centroids.
func (m *Markers) CropRect() geometry.RectInt {
	return geometry.RectInt{
		X:      int(m.TopLeft.X),
		Y:      int(m.TopLeft.Y),
		Width:  int(m.TopRight.X - m.TopLeft.X),
		Height: int(m.BottomLeft.Y - m.TopLeft.Y),
	}
}

// Detect finds the three triangle fiducials in a grayscale sheet image.
//
// The image is blurred to suppress print noise, thresholded inverse-binary
// so marks become foreground, and searched for external contours whose
// polygon approximation has exactly three vertices and a noise-clearing
// area. Centroids come from image moments over each candidate's mask
// region (cx = m10/m00, cy = m01/m00).
func Detect(gray gocv.Mat, params Params) (*Markers, error) {
	if gray.Empty() {
		return nil, ErrMissingMarkers
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(blurred, &thresh, float32(params.Threshold), 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var candidates []geometry.Point2D
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)
		if area <= params.MinArea {
			continue
		}

		peri := gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, 0.04*peri, true)
		vertices := approx.Size()
		approx.Close()
		// Only triangles qualify; text blobs and bubbles approximate to
		// other vertex counts even when they clear the area floor.
		if vertices != 3 {
			continue
		}

		if c, ok := centroid(thresh, contour); ok {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) < 3 {
		return nil, ErrMissingMarkers
	}
	return classify(candidates), nil
}

// Crop detects the fiducials and returns the sheet cropped to the
// template rectangle they span. The returned Mat is a copy; the input
// is left untouched.
func Crop(gray gocv.Mat, params Params) (gocv.Mat, error) {
	markers, err := Detect(gray, params)
	if err != nil {
		return gocv.Mat{}, err
	}
	rect := markers.CropRect().Clamp(gray.Cols(), gray.Rows())
	if rect.Empty() {
		return gocv.Mat{}, ErrMissingMarkers
	}
	roi := gray.Region(image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height))
	cropped := roi.Clone()
	roi.Close()
	return cropped, nil
}

// centroid computes a candidate's centroid via image moments over its
// mask region, returning false when m00 is zero.
func centroid(mask gocv.Mat, contour gocv.PointVector) (geometry.Point2D, bool) {
	bounds := gocv.BoundingRect(contour)
	region := mask.Region(bounds)
	moments := gocv.Moments(region, true)
	region.Close()

	m00 := moments["m00"]
	if m00 == 0 {
		return geometry.Point2D{}, false
	}
	return geometry.Point2D{
		X: float64(bounds.Min.X) + moments["m10"]/m00,
		Y: float64(bounds.Min.Y) + moments["m01"]/m00,
	}, true
}

// classify orders candidate centroids into top-left, top-right and
// bottom-left fiducials by relative position.
func classify(candidates []geometry.Point2D) *Markers {
	sorted := make([]geometry.Point2D, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	top := sorted[:2]
	bottom := sorted[len(sorted)-1]

	tl, tr := top[0], top[1]
	if tr.X < tl.X {
		tl, tr = tr, tl
	}
	return &Markers{TopLeft: tl, TopRight: tr, BottomLeft: bottom}
}
