package scoring

import (
	"testing"

	"quikscore/internal/sheet"
)

func signPtr(s sheet.Sign) *sheet.Sign { return &s }

func TestCheckAnswer(t *testing.T) {
	plus7 := &sheet.Answer{Sign: signPtr(sheet.SignPlus), Digit: 7}
	seven := &sheet.Answer{Digit: 7}
	three := &sheet.Answer{Digit: 3}

	tests := []struct {
		name        string
		student     *sheet.Answer
		key         *sheet.Answer
		points      uint32
		wantVerdict Verdict
		wantPoints  uint32
	}{
		{name: "match earns points", student: seven, key: seven, points: 4, wantVerdict: Correct, wantPoints: 4},
		{name: "wrong digit", student: three, key: seven, points: 4, wantVerdict: Incorrect},
		{name: "sign mismatch", student: plus7, key: seven, points: 4, wantVerdict: Incorrect},
		{name: "student blank", student: nil, key: seven, points: 4, wantVerdict: Missing},
		{name: "key blank", student: seven, key: nil, points: 4, wantVerdict: NotCounted},
		{name: "both blank", student: nil, key: nil, points: 4, wantVerdict: NotCounted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckAnswer(tc.student, tc.key, tc.points)
			if got.Verdict != tc.wantVerdict {
				t.Fatalf("verdict = %v, want %v", got.Verdict, tc.wantVerdict)
			}
			if got.Points != tc.wantPoints {
				t.Fatalf("points = %d, want %d", got.Points, tc.wantPoints)
			}
		})
	}
}

func TestRollup(t *testing.T) {
	tests := []struct {
		name     string
		verdicts [5]Verdict
		want     Verdict
	}{
		{name: "all not counted", verdicts: [5]Verdict{NotCounted, NotCounted, NotCounted, NotCounted, NotCounted}, want: NotCounted},
		{name: "all correct", verdicts: [5]Verdict{Correct, Correct, NotCounted, NotCounted, NotCounted}, want: Correct},
		{name: "incorrect dominates", verdicts: [5]Verdict{Correct, Incorrect, Missing, NotCounted, NotCounted}, want: Incorrect},
		{name: "missing beats correct", verdicts: [5]Verdict{Correct, Missing, NotCounted, NotCounted, NotCounted}, want: Missing},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := CheckedQuestionGroup{
				A: CheckedAnswer{Verdict: tc.verdicts[0]},
				B: CheckedAnswer{Verdict: tc.verdicts[1]},
				C: CheckedAnswer{Verdict: tc.verdicts[2]},
				D: CheckedAnswer{Verdict: tc.verdicts[3]},
				E: CheckedAnswer{Verdict: tc.verdicts[4]},
			}
			if got := g.Rollup(); got != tc.want {
				t.Fatalf("Rollup = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestScoreAggregates exercises the whole verdict taxonomy in one
// sheet: a correct sub-answer, a wrong one, a missing one, and a
// not-counted one.
func TestScoreAggregates(t *testing.T) {
	var key sheet.AnswerKeySheet
	key.SubjectID = "10"
	key.Answers[0].A = &sheet.Answer{Digit: 1}
	key.Answers[0].B = &sheet.Answer{Digit: 2}
	key.Answers[1].A = &sheet.Answer{Sign: signPtr(sheet.SignMinus), Digit: 5}

	var student sheet.AnswerSheet
	student.SubjectID = "10"
	student.Answers[0].A = &sheet.Answer{Digit: 1} // correct
	student.Answers[0].B = &sheet.Answer{Digit: 9} // incorrect
	// q1 A left blank: missing
	student.Answers[1].B = &sheet.Answer{Digit: 5} // key blank: not counted

	var w SubjectWeights
	w.PerQuestion[0] = Weight{A: 3, B: 2}
	w.PerQuestion[1] = Weight{A: 4, B: 4}

	result := Score(&student, &key, w)

	if result.Score != 3 {
		t.Fatalf("score = %d, want 3", result.Score)
	}
	if result.Correct != 1 {
		t.Fatalf("correct = %d, want 1", result.Correct)
	}
	// One wrong answer plus one missing answer.
	if result.Incorrect != 2 {
		t.Fatalf("incorrect = %d, want 2", result.Incorrect)
	}

	if v := result.Questions[0].A.Verdict; v != Correct {
		t.Fatalf("q1 A verdict = %v, want %v", v, Correct)
	}
	if v := result.Questions[0].B.Verdict; v != Incorrect {
		t.Fatalf("q1 B verdict = %v, want %v", v, Incorrect)
	}
	if v := result.Questions[1].A.Verdict; v != Missing {
		t.Fatalf("q2 A verdict = %v, want %v", v, Missing)
	}
	if v := result.Questions[1].B.Verdict; v != NotCounted {
		t.Fatalf("q2 B verdict = %v, want %v", v, NotCounted)
	}
	if result.Questions[0].Score != 3 {
		t.Fatalf("q1 score = %d, want 3", result.Questions[0].Score)
	}
}

func TestCheckGroupVerdictSpread(t *testing.T) {
	digit := func(d uint8) *sheet.Answer { return &sheet.Answer{Digit: d} }

	key := sheet.QuestionGroup{A: digit(1), B: digit(2), C: digit(3), D: digit(4)}
	student := sheet.QuestionGroup{A: digit(1), B: digit(9), C: digit(3), E: digit(1)}

	checked := CheckGroup(student, key, Weight{A: 1, B: 1, C: 1, D: 1, E: 1})

	want := [5]Verdict{Correct, Incorrect, Correct, Missing, NotCounted}
	for i, v := range want {
		if got := checked.At(i).Verdict; got != v {
			t.Fatalf("sub-answer %d verdict = %v, want %v", i, got, v)
		}
	}
	if checked.Score != 2 {
		t.Fatalf("group score = %d, want 2", checked.Score)
	}

	// The same pair repeated across a whole sheet.
	var keySheet sheet.AnswerKeySheet
	var studentSheet sheet.AnswerSheet
	var w SubjectWeights
	for i := 0; i < sheet.QuestionCount; i++ {
		keySheet.Answers[i] = key
		studentSheet.Answers[i] = student
		w.PerQuestion[i] = Weight{A: 1, B: 1, C: 1, D: 1, E: 1}
	}

	result := Score(&studentSheet, &keySheet, w)
	if result.Correct != 72 || result.Incorrect != 72 || result.Score != 72 {
		t.Fatalf("aggregates = %d/%d/%d, want 72/72/72",
			result.Correct, result.Incorrect, result.Score)
	}
}

// A sub-answer the student answered where the key is blank never earns
// or costs anything, whatever the weight says.
func TestScoreIgnoresKeylessSubAnswers(t *testing.T) {
	var key sheet.AnswerKeySheet
	var student sheet.AnswerSheet
	student.Answers[5].C = &sheet.Answer{Digit: 8}

	var w SubjectWeights
	w.PerQuestion[5] = Weight{C: 100}

	result := Score(&student, &key, w)
	if result.Score != 0 || result.Correct != 0 || result.Incorrect != 0 {
		t.Fatalf("blank key scored: %+v", result)
	}
}
