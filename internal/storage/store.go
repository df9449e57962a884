package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"quikscore/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS student_scores (
	student_id   TEXT NOT NULL,
	subject_id   TEXT NOT NULL,
	student_name TEXT NOT NULL DEFAULT '',
	subject_name TEXT NOT NULL DEFAULT '',
	exam_room    TEXT NOT NULL DEFAULT '',
	exam_seat    TEXT NOT NULL DEFAULT '',
	total_score  INTEGER NOT NULL,
	PRIMARY KEY (student_id, subject_id)
);`

// Store persists total scores keyed by (student_id, subject_id).
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the score database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open score database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize score database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScores upserts every result with replace semantics: an existing
// row for the same (student_id, subject_id) is deleted and rewritten,
// never accumulated. The batch is atomic.
func (s *Store) SaveScores(ctx context.Context, results []session.ScoredSheet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin score upsert: %w", err)
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx,
		`DELETE FROM student_scores WHERE student_id = ? AND subject_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO student_scores
			(student_id, subject_id, student_name, subject_name, exam_room, exam_seat, total_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	for _, entry := range results {
		sh := entry.Sheet
		if _, err := del.ExecContext(ctx, sh.StudentID, sh.SubjectID); err != nil {
			return fmt.Errorf("delete prior score for %s/%s: %w", sh.SubjectID, sh.StudentID, err)
		}
		if _, err := ins.ExecContext(ctx,
			sh.StudentID, sh.SubjectID, sh.StudentName, sh.SubjectName,
			sh.ExamRoom, sh.ExamSeat, int64(entry.Result.Score)); err != nil {
			return fmt.Errorf("insert score for %s/%s: %w", sh.SubjectID, sh.StudentID, err)
		}
	}
	return tx.Commit()
}

// StoredScore is one persisted total-score row.
type StoredScore struct {
	StudentID   string
	SubjectID   string
	StudentName string
	SubjectName string
	ExamRoom    string
	ExamSeat    string
	TotalScore  uint32
}

// AllScores returns every stored row ordered by subject then student.
func (s *Store) AllScores(ctx context.Context) ([]StoredScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, subject_id, student_name, subject_name,
		       exam_room, exam_seat, total_score
		FROM student_scores
		ORDER BY subject_id, student_id`)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []StoredScore
	for rows.Next() {
		var row StoredScore
		var total int64
		if err := rows.Scan(&row.StudentID, &row.SubjectID, &row.StudentName,
			&row.SubjectName, &row.ExamRoom, &row.ExamSeat, &total); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		row.TotalScore = uint32(total)
		out = append(out, row)
	}
	return out, rows.Err()
}

// TotalScore reads one stored total, sql.ErrNoRows when absent.
func (s *Store) TotalScore(ctx context.Context, studentID, subjectID string) (uint32, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT total_score FROM student_scores WHERE student_id = ? AND subject_id = ?`,
		studentID, subjectID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return uint32(total), nil
}
