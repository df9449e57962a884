package scoring

import "quikscore/internal/sheet"

// Verdict is the grading outcome of one sub-answer.
type Verdict uint8

const (
	// Correct: student answer matches the key.
	Correct Verdict = iota
	// Incorrect: both answered, values differ.
	Incorrect
	// Missing: the key has an answer, the student does not. Numerically
	// identical to Incorrect for grading; tracked separately for
	// diagnostics and overlay coloring.
	Missing
	// NotCounted: the key has no answer, so the sub-answer does not exist
	// for this question. Never contributes to any tally.
	NotCounted
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case Missing:
		return "missing"
	case NotCounted:
		return "not counted"
	default:
		return "unknown"
	}
}

// CheckedAnswer is a sub-answer verdict with the points it earned.
type CheckedAnswer struct {
	Verdict Verdict
	Points  uint32
}

// CheckAnswer grades one student sub-answer against the key. points is
// the sub-answer's weight, awarded only on a correct match.
func CheckAnswer(student, key *sheet.Answer, points uint32) CheckedAnswer {
	switch {
	case key == nil:
		return CheckedAnswer{Verdict: NotCounted}
	case student == nil:
		return CheckedAnswer{Verdict: Missing}
	case student.Equal(*key):
		return CheckedAnswer{Verdict: Correct, Points: points}
	default:
		return CheckedAnswer{Verdict: Incorrect}
	}
}

// CheckedQuestionGroup holds a question's five verdicts and its score.
type CheckedQuestionGroup struct {
	A, B, C, D, E CheckedAnswer
	Score         uint32
}

// At returns the verdict of sub-answer i (0 = A .. 4 = E).
func (g CheckedQuestionGroup) At(i int) CheckedAnswer {
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
		panic("scoring: sub-answer index out of range")
	}
}

// Rollup folds the five sub-answer verdicts into one question-level
// verdict: any Incorrect dominates, then Missing, then Correct;
// NotCounted only when the whole question is not counted.
func (g CheckedQuestionGroup) Rollup() Verdict {
	verdict := NotCounted
	for i := 0; i < 5; i++ {
		v := g.At(i).Verdict
		switch {
		case verdict == NotCounted:
			verdict = v
		case verdict == Incorrect:
			// terminal
		case v == Incorrect:
			verdict = Incorrect
		case verdict == Correct && v == Missing:
			verdict = Missing
		}
	}
	return verdict
}

// CheckGroup grades one question group against the key group.
func CheckGroup(student, key sheet.QuestionGroup, w Weight) CheckedQuestionGroup {
	var checked [5]CheckedAnswer
	score := uint32(0)
	for i := 0; i < 5; i++ {
		checked[i] = CheckAnswer(student.At(i), key.At(i), w.At(i))
		score += checked[i].Points
	}
	return CheckedQuestionGroup{
		A: checked[0], B: checked[1], C: checked[2], D: checked[3], E: checked[4],
		Score: score,
	}
}

// Result aggregates a scored sheet. Correct and Incorrect count
// sub-answers; Missing verdicts increment Incorrect.
type Result struct {
	Correct   uint32
	Incorrect uint32
	Score     uint32
	Questions [sheet.QuestionCount]CheckedQuestionGroup
}

// Score grades a sheet against the key, zipping the 36 question groups
// and weights positionally. The question index is the join key, so
// insertion order is preserved end to end. Pure integer arithmetic;
// results are bit-exact reproducible.
func Score(s *sheet.AnswerSheet, key *sheet.AnswerKeySheet, w SubjectWeights) Result {
	var result Result
	for i := 0; i < sheet.QuestionCount; i++ {
		checked := CheckGroup(s.Answers[i], key.Answers[i], w.PerQuestion[i])
		result.Questions[i] = checked
		result.Score += checked.Score
		for sub := 0; sub < 5; sub++ {
			switch checked.At(sub).Verdict {
			case Correct:
				result.Correct++
			case Incorrect, Missing:
				result.Incorrect++
			}
		}
	}
	return result
}
