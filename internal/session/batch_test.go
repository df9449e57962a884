package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quikscore/internal/sheet"
	"quikscore/internal/sheettest"
)

func plainScanner() (*sheet.Scanner, error) {
	return sheet.NewScanner(), nil
}

// readySession builds a session with a rendered key (subject 10,
// question 1 answer A = 1) and matching weights loaded.
func readySession(t *testing.T, workers int) *Session {
	t.Helper()
	sess := New(workers)
	t.Cleanup(sess.Close)

	keyPath := sheettest.Write(t, sheettest.Spec{
		Subject: "10",
		Student: "999999999",
		Marks:   map[int]map[int][]int{0: {0: {4}}},
	})
	scanner, err := plainScanner()
	if err != nil {
		t.Fatalf("build scanner: %v", err)
	}
	image, scanned, err := scanner.ScanFile(keyPath)
	if err != nil {
		t.Fatalf("scan key: %v", err)
	}
	if _, err := sess.UploadKey(image, scanned); err != nil {
		image.Close()
		t.Fatalf("UploadKey: %v", err)
	}
	if err := sess.UploadWeights(strings.NewReader(testWeights)); err != nil {
		t.Fatalf("UploadWeights: %v", err)
	}
	return sess
}

func studentSheet(t *testing.T, student string, marks map[int]map[int][]int) string {
	t.Helper()
	return sheettest.Write(t, sheettest.Spec{Subject: "10", Student: student, Marks: marks})
}

func TestScoreSheetsRequiresKeyAndWeights(t *testing.T) {
	sess := New(1)
	defer sess.Close()

	factory := func() (*sheet.Scanner, error) {
		t.Error("factory must not run without key and weights")
		return nil, errors.New("unreachable")
	}
	_, err := sess.ScoreSheets(context.Background(), []string{"whatever.png"}, factory, nil)
	if !errors.Is(err, ErrUnexpectedState) {
		t.Fatalf("err = %v, want ErrUnexpectedState", err)
	}
	if sess.Phase() != PhaseInit {
		t.Fatalf("phase = %v, want %v", sess.Phase(), PhaseInit)
	}
}

func TestScoreSheetsScoresAndMerges(t *testing.T) {
	sess := readySession(t, 2)

	correct := studentSheet(t, "165010001", map[int]map[int][]int{0: {0: {4}}})
	wrong := studentSheet(t, "165010002", map[int]map[int][]int{0: {0: {5}}})

	sheetErrs, err := sess.ScoreSheets(context.Background(), []string{correct, wrong}, plainScanner, nil)
	if err != nil {
		t.Fatalf("ScoreSheets: %v", err)
	}
	if len(sheetErrs) != 0 {
		t.Fatalf("sheet errors: %v", sheetErrs)
	}
	if sess.Phase() != PhaseScored {
		t.Fatalf("phase = %v, want %v", sess.Phase(), PhaseScored)
	}

	results := sess.Results()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Sheet.StudentID != "165010001" || results[0].Result.Score != 3 {
		t.Fatalf("first result = %s score %d, want 165010001 score 3",
			results[0].Sheet.StudentID, results[0].Result.Score)
	}
	if results[1].Sheet.StudentID != "165010002" || results[1].Result.Score != 0 {
		t.Fatalf("second result = %s score %d, want 165010002 score 0",
			results[1].Sheet.StudentID, results[1].Result.Score)
	}
	if results[0].Image.Empty() {
		t.Fatal("scored sheet has no review image")
	}

	// Clearing the key after scoring is a no-op: results stay.
	if err := sess.ClearKey(); err != nil {
		t.Fatalf("ClearKey: %v", err)
	}
	if sess.Phase() != PhaseScored || len(sess.Results()) != 2 {
		t.Fatal("ClearKey in scored state must not discard anything")
	}
}

// Re-uploading a student's sheet replaces the prior entry instead of
// accumulating a duplicate.
func TestScoreSheetsReplacesRescannedStudent(t *testing.T) {
	sess := readySession(t, 1)

	first := studentSheet(t, "165010001", map[int]map[int][]int{0: {0: {4}}})
	if _, err := sess.ScoreSheets(context.Background(), []string{first}, plainScanner, nil); err != nil {
		t.Fatalf("ScoreSheets: %v", err)
	}

	second := studentSheet(t, "165010001", map[int]map[int][]int{0: {0: {5}}})
	if _, err := sess.ScoreSheets(context.Background(), []string{second}, plainScanner, nil); err != nil {
		t.Fatalf("ScoreSheets (rescan): %v", err)
	}

	results := sess.Results()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Result.Score != 0 {
		t.Fatalf("score = %d, want the rescanned 0", results[0].Result.Score)
	}
}

func TestScoreSheetsRejectsWrongSubject(t *testing.T) {
	sess := readySession(t, 1)

	mismatch := sheettest.Write(t, sheettest.Spec{
		Subject: "20",
		Student: "165010003",
		Marks:   map[int]map[int][]int{0: {0: {4}}},
	})
	sheetErrs, err := sess.ScoreSheets(context.Background(), []string{mismatch}, plainScanner, nil)
	if err != nil {
		t.Fatalf("ScoreSheets: %v", err)
	}
	if len(sheetErrs) != 1 {
		t.Fatalf("got %d sheet errors, want 1", len(sheetErrs))
	}
	if len(sess.Results()) != 0 {
		t.Fatal("mismatched sheet must not be merged")
	}
}

// Cancellation stops new sheets from starting, discards the batch, and
// returns the session to its pre-scoring phase.
func TestScoreSheetsCancellation(t *testing.T) {
	sess := readySession(t, 1)

	path := studentSheet(t, "165010001", map[int]map[int][]int{0: {0: {4}}})
	paths := []string{path, path, path, path}

	progress := make(chan Progress)
	type batchResult struct {
		errs []SheetError
		err  error
	}
	done := make(chan batchResult, 1)
	go func() {
		errs, err := sess.ScoreSheets(context.Background(), paths, plainScanner, progress)
		done <- batchResult{errs: errs, err: err}
	}()

	starting := 0
	var res batchResult
	for waiting := true; waiting; {
		select {
		case ev := <-progress:
			if ev.Stage == StageStarting {
				starting++
				sess.Cancel()
			}
		case res = <-done:
			waiting = false
		}
	}

	if starting != 1 {
		t.Fatalf("%d sheets started after cancellation, want 1 total", starting)
	}
	if !errors.Is(res.err, ErrPrematureCancellation) {
		t.Fatalf("err = %v, want ErrPrematureCancellation", res.err)
	}
	skipped := 0
	for _, se := range res.errs {
		if errors.Is(se.Err, ErrPrematureCancellation) {
			skipped++
		}
	}
	if skipped != 3 {
		t.Fatalf("%d sheets skipped, want 3", skipped)
	}
	if sess.Phase() != PhaseWithKeyAndWeights {
		t.Fatalf("phase = %v, want %v", sess.Phase(), PhaseWithKeyAndWeights)
	}
	if len(sess.Results()) != 0 {
		t.Fatal("cancelled batch must not merge partial results")
	}
}

// Cancelling through the caller's context behaves like Cancel: the
// batch is discarded wholesale, never partially merged.
func TestScoreSheetsContextCancellation(t *testing.T) {
	sess := readySession(t, 1)

	path := studentSheet(t, "165010001", map[int]map[int][]int{0: {0: {4}}})
	paths := []string{path, path, path}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sheetErrs, err := sess.ScoreSheets(ctx, paths, plainScanner, nil)
	if !errors.Is(err, ErrPrematureCancellation) {
		t.Fatalf("err = %v, want ErrPrematureCancellation", err)
	}
	if len(sheetErrs) != len(paths) {
		t.Fatalf("got %d sheet errors, want %d", len(sheetErrs), len(paths))
	}
	for _, se := range sheetErrs {
		if !errors.Is(se.Err, ErrPrematureCancellation) {
			t.Fatalf("sheet %s: err = %v, want ErrPrematureCancellation", se.Path, se.Err)
		}
	}
	if sess.Phase() != PhaseWithKeyAndWeights {
		t.Fatalf("phase = %v, want %v", sess.Phase(), PhaseWithKeyAndWeights)
	}
	if len(sess.Results()) != 0 {
		t.Fatal("context-cancelled batch must not merge partial results")
	}
}

// A failing scanner factory aborts the batch; every sheet, including
// the ones its worker never reached, is accounted for in the errors.
func TestScoreSheetsFactoryFailure(t *testing.T) {
	sess := readySession(t, 2)

	path := studentSheet(t, "165010001", map[int]map[int][]int{0: {0: {4}}})
	paths := []string{path, path, path, path}

	brokenOCR := errors.New("no ocr backend")
	factory := func() (*sheet.Scanner, error) { return nil, brokenOCR }

	sheetErrs, err := sess.ScoreSheets(context.Background(), paths, factory, nil)
	if !errors.Is(err, brokenOCR) {
		t.Fatalf("err = %v, want the factory error", err)
	}
	if len(sheetErrs) != len(paths) {
		t.Fatalf("got %d sheet errors, want %d", len(sheetErrs), len(paths))
	}
	seen := make(map[string]bool)
	for _, se := range sheetErrs {
		if se.Err == nil {
			t.Fatalf("sheet %s carries a nil error", se.Path)
		}
		seen[se.Path] = true
	}
	if !seen[path] {
		t.Fatalf("path %s missing from sheet errors", path)
	}
	if sess.Phase() != PhaseWithKeyAndWeights {
		t.Fatalf("phase = %v, want %v", sess.Phase(), PhaseWithKeyAndWeights)
	}
	if len(sess.Results()) != 0 {
		t.Fatal("failed batch must not merge results")
	}
}
