// Package scoring compares decoded answer sheets against the active key
// and weight table and produces per-question verdicts and aggregates.
package scoring

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"quikscore/internal/sheet"
)

// ErrMissingWeights indicates the weight table has no entry for a
// subject code.
var ErrMissingWeights = errors.New("no score weights for subject")

// Weight holds the per-sub-answer point values of one question.
type Weight struct {
	A, B, C, D, E uint32
}

// At returns the point value of sub-answer i (0 = A .. 4 = E).
func (w Weight) At(i int) uint32 {
	switch i {
	case 0:
		return w.A
	case 1:
		return w.B
	case 2:
		return w.C
	case 3:
		return w.D
	case 4:
		return w.E
	default:
		panic("scoring: sub-answer index out of range")
	}
}

// Sum returns the question's total point value.
func (w Weight) Sum() uint32 {
	return w.A + w.B + w.C + w.D + w.E
}

// SubjectWeights is the full weight table of one subject.
type SubjectWeights struct {
	PerQuestion [sheet.QuestionCount]Weight
	// MaxScore is the raw sum of every weight; see Weights.MaxScoreFor
	// for the key-adjusted denominator.
	MaxScore uint32
}

// Weights maps subject codes to their weight tables.
type Weights map[string]SubjectWeights

// HasSubject reports whether the table covers a subject code.
func (w Weights) HasSubject(id string) bool {
	_, ok := w[id]
	return ok
}

// MaxScoreFor returns the score denominator for a key: the subject's
// weight sum minus the full weight of any key question whose five
// sub-answers are all blank. A question the instructor left unanswered
// must not inflate the denominator. Computed once per (key, weights)
// pair, not per student sheet.
func (w Weights) MaxScoreFor(key *sheet.AnswerKeySheet) uint32 {
	subject, ok := w[key.SubjectID]
	if !ok {
		return 0
	}
	deduction := uint32(0)
	for i, group := range key.Answers {
		if group.Blank() {
			deduction += subject.PerQuestion[i].Sum()
		}
	}
	return subject.MaxScore - deduction
}

// ParseWeights reads a tabular weights file with columns
// subject_code,question_num,A,B,C,D,E (one row per question per
// subject). Duplicate (subject, question) rows: last one wins. Blank or
// unparseable point cells default to 0 with a logged warning.
func ParseWeights(r io.Reader) (Weights, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 7
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read weights file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("weights file is empty")
	}

	// Skip the header row if present.
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "subject_code") {
		records = records[1:]
	}

	tables := make(map[string]*[sheet.QuestionCount]Weight)
	for line, rec := range records {
		subject := strings.TrimSpace(rec[0])
		num, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || num < 1 || num > sheet.QuestionCount {
			log.Printf("weights row %d: bad question number %q, skipping", line+1, rec[1])
			continue
		}
		table, ok := tables[subject]
		if !ok {
			table = &[sheet.QuestionCount]Weight{}
			tables[subject] = table
		}
		table[num-1] = Weight{
			A: parsePoints(rec[2], subject, num, "A"),
			B: parsePoints(rec[3], subject, num, "B"),
			C: parsePoints(rec[4], subject, num, "C"),
			D: parsePoints(rec[5], subject, num, "D"),
			E: parsePoints(rec[6], subject, num, "E"),
		}
	}

	weights := make(Weights, len(tables))
	for subject, table := range tables {
		max := uint32(0)
		for _, q := range table {
			max += q.Sum()
		}
		weights[subject] = SubjectWeights{PerQuestion: *table, MaxScore: max}
	}
	return weights, nil
}

// parsePoints reads one point cell; blank means "sub-answer does not
// exist" and scores 0.
func parsePoints(cell, subject string, question int, sub string) uint32 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0
	}
	v, err := strconv.ParseUint(cell, 10, 32)
	if err != nil {
		log.Printf("weights subject %s q%d%s: cannot parse %q, using 0: %v",
			subject, question, sub, cell, err)
		return 0
	}
	return uint32(v)
}
