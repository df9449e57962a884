// Package session holds the scoring session: the active answer key,
// the active weight table, and the accumulated scored sheets. It
// enforces the upload order key, then weights, then sheets.
package session

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"quikscore/internal/scoring"
	"quikscore/internal/sheet"
)

// ErrUnexpectedState indicates an operation attempted in a phase that
// does not allow it. The session is left untouched.
var ErrUnexpectedState = errors.New("operation not allowed in current session state")

// Phase is the session lifecycle stage.
type Phase uint8

const (
	// PhaseInit: empty session, nothing uploaded.
	PhaseInit Phase = iota
	// PhaseWithKey: answer key loaded, no weights yet.
	PhaseWithKey
	// PhaseWithKeyAndWeights: key and matching weights loaded, ready to
	// score sheets.
	PhaseWithKeyAndWeights
	// PhaseScoring: a sheet batch is in flight.
	PhaseScoring
	// PhaseScored: at least one batch has been merged.
	PhaseScored
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseWithKey:
		return "with key"
	case PhaseWithKeyAndWeights:
		return "with key and weights"
	case PhaseScoring:
		return "scoring"
	case PhaseScored:
		return "scored"
	default:
		return "unknown"
	}
}

// ScoredSheet bundles one graded submission with its review image.
type ScoredSheet struct {
	Path   string
	Sheet  sheet.AnswerSheet
	Result scoring.Result
	// Image is the verdict-colored review render. Owned by the session
	// until ClearSheets or replacement by a re-upload.
	Image gocv.Mat
}

// Session is the mutex-guarded scoring state. Transitions take the
// lock, compute the next state, and release; per-sheet image work
// happens outside the lock in worker goroutines.
type Session struct {
	mu      sync.Mutex
	phase   Phase
	workers int

	keyImage gocv.Mat
	key      *sheet.AnswerKeySheet
	weights  scoring.Weights
	maxScore uint32

	// scored is keyed by student ID; a re-upload of the same student
	// replaces the prior entry.
	scored map[string]ScoredSheet

	cancel atomic.Bool
}

// New returns an empty session that scores batches with at most
// workers parallel sheet tasks.
func New(workers int) *Session {
	if workers < 1 {
		workers = 1
	}
	return &Session{
		workers: workers,
		scored:  make(map[string]ScoredSheet),
	}
}

// Phase returns the current lifecycle stage.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// UploadKey installs a scanned sheet as the active answer key. image is
// the cropped key raster; the session takes ownership of it.
//
// Loaded weights are retained when they still cover the new key's
// subject; otherwise they are dropped and weightsCleared reports that
// the caller must upload weights again.
func (s *Session) UploadKey(image gocv.Mat, scanned *sheet.AnswerSheet) (weightsCleared bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseInit, PhaseWithKey, PhaseWithKeyAndWeights:
	default:
		return false, fmt.Errorf("upload key: %w (%s)", ErrUnexpectedState, s.phase)
	}

	key := sheet.NewKeySheet(*scanned)
	if s.key != nil {
		s.keyImage.Close()
	}
	s.keyImage = image
	s.key = &key

	if s.weights != nil && s.weights.HasSubject(key.SubjectID) {
		s.maxScore = s.weights.MaxScoreFor(s.key)
		s.phase = PhaseWithKeyAndWeights
		return false, nil
	}
	cleared := s.weights != nil
	s.weights = nil
	s.maxScore = 0
	s.phase = PhaseWithKey
	return cleared, nil
}

// UploadWeights parses and installs a weights table. The table must
// cover the active key's subject; on mismatch the session stays in its
// current phase and the error wraps scoring.ErrMissingWeights.
func (s *Session) UploadWeights(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseWithKey, PhaseWithKeyAndWeights:
	default:
		return fmt.Errorf("upload weights: %w (%s)", ErrUnexpectedState, s.phase)
	}

	weights, err := scoring.ParseWeights(r)
	if err != nil {
		return err
	}
	if !weights.HasSubject(s.key.SubjectID) {
		return fmt.Errorf("%w %q", scoring.ErrMissingWeights, s.key.SubjectID)
	}

	s.weights = weights
	s.maxScore = weights.MaxScoreFor(s.key)
	s.phase = PhaseWithKeyAndWeights
	return nil
}

// ClearKey discards the key and everything downstream of it. A no-op
// once sheets have been scored; scored results outlive their key.
func (s *Session) ClearKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseScoring:
		return fmt.Errorf("clear key: %w (%s)", ErrUnexpectedState, s.phase)
	case PhaseInit, PhaseScored:
		return nil
	}

	s.keyImage.Close()
	s.keyImage = gocv.Mat{}
	s.key = nil
	s.weights = nil
	s.maxScore = 0
	s.phase = PhaseInit
	return nil
}

// ClearWeights drops the weight table, returning to the key-only phase.
func (s *Session) ClearWeights() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseScoring:
		return fmt.Errorf("clear weights: %w (%s)", ErrUnexpectedState, s.phase)
	case PhaseWithKeyAndWeights:
		s.weights = nil
		s.maxScore = 0
		s.phase = PhaseWithKey
	}
	return nil
}

// ClearSheets discards all scored sheets and their review images,
// returning to the ready-to-score phase.
func (s *Session) ClearSheets() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseScoring:
		return fmt.Errorf("clear sheets: %w (%s)", ErrUnexpectedState, s.phase)
	case PhaseScored:
		for _, entry := range s.scored {
			entry.Image.Close()
		}
		s.scored = make(map[string]ScoredSheet)
		s.phase = PhaseWithKeyAndWeights
	}
	return nil
}

// Cancel signals the in-flight batch to stop picking up new sheets.
// Safe to call from any goroutine. The flag is sticky until the next
// batch starts, which resets it; outside PhaseScoring setting it has
// no effect on session state.
func (s *Session) Cancel() {
	s.cancel.Store(true)
}

// MaxScore returns the key-adjusted score denominator for the active
// subject, zero until key and weights are both loaded.
func (s *Session) MaxScore() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxScore
}

// Results returns a snapshot of the scored sheets ordered by student
// ID. The Mat handles in the snapshot stay owned by the session.
func (s *Session) Results() []ScoredSheet {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScoredSheet, 0, len(s.scored))
	for _, entry := range s.scored {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sheet.StudentID < out[j].Sheet.StudentID
	})
	return out
}

// Close releases every image the session owns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.keyImage.Close()
		s.keyImage = gocv.Mat{}
		s.key = nil
	}
	for _, entry := range s.scored {
		entry.Image.Close()
	}
	s.scored = make(map[string]ScoredSheet)
}
