package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"quikscore/internal/overlay"
	"quikscore/internal/scoring"
	"quikscore/internal/sheet"
)

// ErrPrematureCancellation marks a sheet that was skipped because the
// batch was cancelled before a worker picked it up.
var ErrPrematureCancellation = errors.New("scoring cancelled before sheet was processed")

// Stage labels a batch progress event.
type Stage uint8

const (
	// StageStarting: a worker picked the sheet up.
	StageStarting Stage = iota
	// StageFinishing: the sheet is done, scored or failed.
	StageFinishing
)

func (s Stage) String() string {
	if s == StageStarting {
		return "starting"
	}
	return "finishing"
}

// Progress is one batch progress event.
type Progress struct {
	Path  string
	Stage Stage
}

// ScannerFactory builds one scanner per worker. OCR engines are not
// safe to share, so each worker owns a freshly built scanner for the
// lifetime of the batch.
type ScannerFactory func() (*sheet.Scanner, error)

// SheetError reports one sheet that did not make it into the session.
type SheetError struct {
	Path string
	Err  error
}

// outcome is one worker slot; exactly one of scored/err is populated.
type outcome struct {
	scored ScoredSheet
	err    error
}

// ScoreSheets scans, scores, and renders every path in a bounded worker
// pool, then merges the batch into the session keyed by student ID
// (last path wins on duplicates). Requires key and weights loaded.
//
// Progress events are sent to progress when it is non-nil; the caller
// must drain it. Cancellation, via Cancel or via ctx, is cooperative:
// in-flight sheets finish, unstarted ones fail with
// ErrPrematureCancellation and the whole batch is discarded.
func (s *Session) ScoreSheets(ctx context.Context, paths []string, factory ScannerFactory, progress chan<- Progress) ([]SheetError, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	entryPhase := s.phase
	switch entryPhase {
	case PhaseWithKeyAndWeights, PhaseScored:
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("score sheets: %w (%s)", ErrUnexpectedState, entryPhase)
	}
	key := s.key
	weights := s.weights[key.SubjectID]
	s.cancel.Store(false)
	s.phase = PhaseScoring
	s.mu.Unlock()

	outcomes := make([]outcome, len(paths))
	indexes := make(chan int, len(paths))
	for i := range paths {
		indexes <- i
	}
	close(indexes)

	workers := s.workers
	if workers > len(paths) {
		workers = len(paths)
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			scanner, err := factory()
			if err != nil {
				return fmt.Errorf("build scanner: %w", err)
			}
			defer func() {
				if scanner.Reader != nil {
					scanner.Reader.Close()
				}
			}()
			for i := range indexes {
				if s.cancel.Load() || gctx.Err() != nil {
					outcomes[i].err = ErrPrematureCancellation
					continue
				}
				emit(progress, paths[i], StageStarting)
				outcomes[i] = scoreOne(scanner, paths[i], key, weights)
				emit(progress, paths[i], StageFinishing)
			}
			return nil
		})
	}
	batchErr := g.Wait()

	// A failed worker leaves its undrained indexes as zero-value slots;
	// account for them before closing images or collecting errors.
	for i := range outcomes {
		if outcomes[i].err == nil && outcomes[i].scored.Path == "" {
			outcomes[i].err = ErrPrematureCancellation
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancellation may arrive through Cancel or through the caller's
	// ctx; either way the batch is discarded, never partially merged.
	// The parent ctx is consulted here because the derived group
	// context is always done once Wait returns.
	if cancelled := s.cancel.Load() || ctx.Err() != nil; cancelled || batchErr != nil {
		for i := range outcomes {
			if outcomes[i].err == nil {
				outcomes[i].scored.Image.Close()
			}
		}
		s.phase = entryPhase
		if cancelled {
			return collectErrors(paths, outcomes), ErrPrematureCancellation
		}
		return collectErrors(paths, outcomes), batchErr
	}

	for i := range outcomes {
		if outcomes[i].err != nil {
			log.Printf("sheet %s: %v", paths[i], outcomes[i].err)
			continue
		}
		id := outcomes[i].scored.Sheet.StudentID
		if prior, ok := s.scored[id]; ok {
			prior.Image.Close()
		}
		s.scored[id] = outcomes[i].scored
	}
	s.phase = PhaseScored
	return collectErrors(paths, outcomes), nil
}

// scoreOne runs the per-sheet pipeline outside the session lock.
func scoreOne(scanner *sheet.Scanner, path string, key *sheet.AnswerKeySheet, weights scoring.SubjectWeights) outcome {
	cropped, decoded, err := scanner.ScanFile(path)
	if err != nil {
		return outcome{err: err}
	}
	defer cropped.Close()

	if decoded.SubjectID != key.SubjectID {
		return outcome{err: fmt.Errorf("sheet subject %q does not match key subject %q",
			decoded.SubjectID, key.SubjectID)}
	}

	result := scoring.Score(decoded, key, weights)
	return outcome{scored: ScoredSheet{
		Path:   path,
		Sheet:  *decoded,
		Result: result,
		Image:  overlay.Render(cropped, &result),
	}}
}

func emit(progress chan<- Progress, path string, stage Stage) {
	if progress != nil {
		progress <- Progress{Path: path, Stage: stage}
	}
}

func collectErrors(paths []string, outcomes []outcome) []SheetError {
	var errs []SheetError
	for i := range outcomes {
		if outcomes[i].err != nil {
			errs = append(errs, SheetError{Path: paths[i], Err: outcomes[i].err})
		}
	}
	return errs
}
