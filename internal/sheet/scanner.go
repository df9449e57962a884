package sheet

import (
	"fmt"
	"image"
	"log"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"quikscore/internal/bubble"
	"quikscore/internal/imgio"
	"quikscore/internal/marker"
	"quikscore/internal/ocr"
	"quikscore/internal/template"
	"quikscore/pkg/geometry"
)

// Scanner runs the full recognition pipeline on a single sheet image:
// fiducial crop, region extraction, bubble decoding, and optional OCR of
// the handwritten text fields.
type Scanner struct {
	Marker marker.Params
	Fill   bubble.Params
	// Reader extracts the free-text fields; nil disables OCR. Readers
	// are not shared between workers; give each worker its own.
	Reader ocr.TextReader
}

// NewScanner returns a scanner with the calibrated defaults and no OCR.
func NewScanner() *Scanner {
	return &Scanner{
		Marker: marker.DefaultParams(),
		Fill:   bubble.DefaultParams(),
	}
}

// ScanFile loads the image at path and scans it. On success it returns
// the template-cropped grayscale raster (used later for overlay
// rendering) alongside the decoded sheet.
func (s *Scanner) ScanFile(path string) (gocv.Mat, *AnswerSheet, error) {
	mat, err := imgio.Read(path)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer mat.Close()
	return s.Scan(mat)
}

// Scan decodes a grayscale sheet raster.
func (s *Scanner) Scan(gray gocv.Mat) (gocv.Mat, *AnswerSheet, error) {
	cropped, err := marker.Crop(gray, s.Marker)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("align sheet: %w", err)
	}

	decoded, err := s.decode(cropped)
	if err != nil {
		cropped.Close()
		return gocv.Mat{}, nil, err
	}
	return cropped, decoded, nil
}

func (s *Scanner) decode(cropped gocv.Mat) (*AnswerSheet, error) {
	w, h := cropped.Cols(), cropped.Rows()

	subjectID, err := s.readID(cropped, template.SubjectIDBlock(w, h), template.SubjectDigits)
	if err != nil {
		return nil, fmt.Errorf("subject ID block: %w", err)
	}
	studentID, err := s.readID(cropped, template.StudentIDBlock(w, h), template.StudentDigits)
	if err != nil {
		return nil, fmt.Errorf("student ID block: %w", err)
	}

	result := &AnswerSheet{SubjectID: subjectID, StudentID: studentID}

	var allRatios []float64
	for i := 0; i < template.QuestionCount; i++ {
		block := template.QuestionBlock(i, w, h)
		group, ratios, err := s.readGroup(cropped, block)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		result.Answers[i] = group
		allRatios = append(allRatios, ratios...)
	}

	mean, stddev := bubble.Contrast(allRatios)
	log.Printf("sheet %s/%s: fill contrast mean=%.3f stddev=%.3f",
		subjectID, studentID, mean, stddev)

	s.readTextFields(cropped, result)
	return result, nil
}

// readGroup decodes the five answer rows of one question block.
func (s *Scanner) readGroup(gray gocv.Mat, block geometry.RectInt) (QuestionGroup, []float64, error) {
	var rows [template.RowsPerQuestion]*Answer
	var ratios []float64
	for r := 0; r < template.RowsPerQuestion; r++ {
		marked, rowRatios, err := bubble.ReadRow(gray, template.AnswerRow(block, r), s.Fill)
		if err != nil {
			return QuestionGroup{}, nil, err
		}
		rows[r] = AnswerFromBubbles(marked)
		ratios = append(ratios, rowRatios...)
	}
	return QuestionGroup{A: rows[0], B: rows[1], C: rows[2], D: rows[3], E: rows[4]}, ratios, nil
}

// readID decodes a bubble-coded ID block of the given digit width.
// Blank columns contribute nothing.
func (s *Scanner) readID(gray gocv.Mat, block geometry.RectInt, digits int) (string, error) {
	var sb strings.Builder
	for _, col := range template.SplitCols(block, digits) {
		digit, ok, err := bubble.ReadDigitColumn(gray, col, s.Fill)
		if err != nil {
			return "", err
		}
		if ok {
			sb.WriteString(strconv.Itoa(digit))
		}
	}
	return sb.String(), nil
}

// readTextFields fills the optional OCR fields. OCR failure skips
// cross-validation; it never fails the sheet.
func (s *Scanner) readTextFields(cropped gocv.Mat, result *AnswerSheet) {
	if s.Reader == nil {
		return
	}
	fields := template.ResolveTextFields(cropped.Cols(), cropped.Rows())
	result.StudentName = s.readText(cropped, fields.StudentName)
	result.SubjectName = s.readText(cropped, fields.SubjectName)
	result.ExamRoom = s.readText(cropped, fields.ExamRoom)
	result.ExamSeat = s.readText(cropped, fields.ExamSeat)
}

func (s *Scanner) readText(gray gocv.Mat, rect geometry.RectInt) string {
	rect = rect.Clamp(gray.Cols(), gray.Rows())
	if rect.Empty() {
		return ""
	}
	region := gray.Region(image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height))
	defer region.Close()

	text, err := s.Reader.TextFrom(region)
	if err != nil {
		log.Printf("OCR failed, skipping field: %v", err)
		return ""
	}
	return text
}
