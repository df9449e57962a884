package sheet

import "testing"

func signPtr(s Sign) *Sign { return &s }

func TestAnswerFromBubbles(t *testing.T) {
	tests := []struct {
		name   string
		marked []int
		want   *Answer
	}{
		{name: "blank row", marked: nil, want: nil},
		{name: "digit only", marked: []int{3}, want: &Answer{Digit: 0}},
		{name: "highest digit", marked: []int{12}, want: &Answer{Digit: 9}},
		{name: "plus and digit", marked: []int{0, 7}, want: &Answer{Sign: signPtr(SignPlus), Digit: 4}},
		{name: "minus and digit", marked: []int{1, 3}, want: &Answer{Sign: signPtr(SignMinus), Digit: 0}},
		{name: "plus-or-minus and digit", marked: []int{2, 12}, want: &Answer{Sign: signPtr(SignPlusOrMinus), Digit: 9}},
		{name: "order of marks is irrelevant", marked: []int{7, 0}, want: &Answer{Sign: signPtr(SignPlus), Digit: 4}},
		{name: "sign without digit", marked: []int{0}, want: nil},
		{name: "two digits", marked: []int{4, 5}, want: nil},
		{name: "two signs", marked: []int{0, 1, 5}, want: nil},
		{name: "sign plus two digits", marked: []int{2, 3, 4}, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AnswerFromBubbles(tc.marked)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("AnswerFromBubbles(%v) = %v, want %v", tc.marked, got, tc.want)
			}
			if got != nil && !got.Equal(*tc.want) {
				t.Fatalf("AnswerFromBubbles(%v) = %+v, want %+v", tc.marked, got, tc.want)
			}
		})
	}
}

func TestAnswerEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Answer
		want bool
	}{
		{name: "same digit no sign", a: Answer{Digit: 3}, b: Answer{Digit: 3}, want: true},
		{name: "different digit", a: Answer{Digit: 3}, b: Answer{Digit: 4}, want: false},
		{name: "sign presence differs", a: Answer{Digit: 3}, b: Answer{Sign: signPtr(SignPlus), Digit: 3}, want: false},
		{name: "same sign same digit", a: Answer{Sign: signPtr(SignMinus), Digit: 5}, b: Answer{Sign: signPtr(SignMinus), Digit: 5}, want: true},
		{name: "different sign same digit", a: Answer{Sign: signPtr(SignMinus), Digit: 5}, b: Answer{Sign: signPtr(SignPlus), Digit: 5}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Fatalf("Equal = %v, want %v", got, tc.want)
			}
			if got := tc.b.Equal(tc.a); got != tc.want {
				t.Fatalf("Equal is not symmetric: reversed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQuestionGroupBlank(t *testing.T) {
	if !(QuestionGroup{}).Blank() {
		t.Fatal("empty group should be blank")
	}
	g := QuestionGroup{C: &Answer{Digit: 1}}
	if g.Blank() {
		t.Fatal("group with one answer should not be blank")
	}
}

func TestNewKeySheet(t *testing.T) {
	s := AnswerSheet{
		SubjectID:   "10",
		StudentID:   "165010001",
		StudentName: "not part of the key",
	}
	s.Answers[0].A = &Answer{Digit: 7}

	key := NewKeySheet(s)
	if key.SubjectID != "10" {
		t.Fatalf("key subject = %q, want %q", key.SubjectID, "10")
	}
	if key.Answers[0].A == nil || key.Answers[0].A.Digit != 7 {
		t.Fatalf("key answers not carried over: %+v", key.Answers[0])
	}
}
