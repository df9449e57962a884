// Package sheet defines the decoded answer-sheet model and the decode
// rule that turns marked bubble cells into structured answers.
package sheet

import "sort"

// Sign is the optional sign prefix of an answer, encoded by the first
// three bubble cells of a row.
type Sign uint8

const (
	SignPlus Sign = iota
	SignMinus
	SignPlusOrMinus
)

func (s Sign) String() string {
	switch s {
	case SignPlus:
		return "+"
	case SignMinus:
		return "-"
	case SignPlusOrMinus:
		return "±"
	default:
		return "?"
	}
}

// Answer is the decoded content of one answer row: an optional sign and
// a digit 0-9.
type Answer struct {
	Sign  *Sign
	Digit uint8
}

// Equal reports whether two answers match exactly (same sign presence
// and value, same digit).
func (a Answer) Equal(other Answer) bool {
	if a.Digit != other.Digit {
		return false
	}
	if (a.Sign == nil) != (other.Sign == nil) {
		return false
	}
	return a.Sign == nil || *a.Sign == *other.Sign
}

// signOf returns the sign encoded by cells 0-2.
func signOf(cell int) Sign {
	switch cell {
	case 0:
		return SignPlus
	case 1:
		return SignMinus
	default:
		return SignPlusOrMinus
	}
}

// AnswerFromBubbles decodes the marked cell indices of a 13-cell row.
// Cells 0-2 encode the sign, cells 3-12 the digit (cell minus 3).
//
// The row decodes to nil when it is blank, when more than one sign or
// more than one digit cell is marked (ambiguous rows are never guessed),
// or when only a sign is marked.
func AnswerFromBubbles(marked []int) *Answer {
	cells := make([]int, len(marked))
	copy(cells, marked)
	sort.Ints(cells)

	var sign *Sign
	var digit *uint8
	for _, cell := range cells {
		if cell < 3 {
			if sign != nil {
				return nil
			}
			s := signOf(cell)
			sign = &s
			continue
		}
		if digit != nil {
			return nil
		}
		d := uint8(cell - 3)
		digit = &d
	}
	if digit == nil {
		return nil
	}
	return &Answer{Sign: sign, Digit: *digit}
}

// QuestionGroup is one scored question: up to five sub-answers A-E.
type QuestionGroup struct {
	A, B, C, D, E *Answer
}

// At returns sub-answer i (0 = A .. 4 = E).
func (g QuestionGroup) At(i int) *Answer {
	switch i {
	case 0:
		return g.A
	case 1:
		return g.B
	case 2:
		return g.C
	case 3:
		return g.D
	case 4:
		return g.E
	default:
		panic("sheet: sub-answer index out of range")
	}
}

// Blank reports whether the group has no answers at all.
func (g QuestionGroup) Blank() bool {
	return g.A == nil && g.B == nil && g.C == nil && g.D == nil && g.E == nil
}

// QuestionCount is the fixed number of question groups on a sheet.
const QuestionCount = 36

// AnswerSheet is one decoded submission.
type AnswerSheet struct {
	SubjectID string
	StudentID string

	// OCR-derived text fields; empty when OCR is disabled or failed.
	StudentName string
	SubjectName string
	ExamRoom    string
	ExamSeat    string

	Answers [QuestionCount]QuestionGroup
}

// AnswerKeySheet is the instructor's key: an AnswerSheet demoted to the
// fields scoring needs.
type AnswerKeySheet struct {
	SubjectID string
	Answers   [QuestionCount]QuestionGroup
}

// NewKeySheet demotes a scanned sheet into the canonical answer key.
func NewKeySheet(s AnswerSheet) AnswerKeySheet {
	return AnswerKeySheet{SubjectID: s.SubjectID, Answers: s.Answers}
}
