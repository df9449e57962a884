// Package storage persists and exports scored sheets: a tabular export
// for spreadsheets and a SQLite total-score store.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"quikscore/internal/session"
	"quikscore/internal/sheet"
)

// ExportCSV writes one row per scored sheet: the identification fields,
// the 36 per-question scores, and the total, ordered as the results are
// given. A header row comes first.
func ExportCSV(w io.Writer, results []session.ScoredSheet) error {
	writer := csv.NewWriter(w)

	header := []string{
		"student_id", "subject_id", "student_name", "subject_name",
		"exam_room", "exam_seat",
	}
	for q := 1; q <= sheet.QuestionCount; q++ {
		header = append(header, fmt.Sprintf("q%d", q))
	}
	header = append(header, "total")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	for _, entry := range results {
		row := []string{
			entry.Sheet.StudentID,
			entry.Sheet.SubjectID,
			entry.Sheet.StudentName,
			entry.Sheet.SubjectName,
			entry.Sheet.ExamRoom,
			entry.Sheet.ExamSeat,
		}
		for _, q := range entry.Result.Questions {
			row = append(row, strconv.FormatUint(uint64(q.Score), 10))
		}
		row = append(row, strconv.FormatUint(uint64(entry.Result.Score), 10))
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write export row for %s: %w", entry.Sheet.StudentID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportTotalsCSV writes the persisted totals, one row per stored
// (student, subject) pair.
func ExportTotalsCSV(w io.Writer, rows []StoredScore) error {
	writer := csv.NewWriter(w)

	header := []string{
		"student_id", "subject_id", "student_name", "subject_name",
		"exam_room", "exam_seat", "total",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write totals header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.StudentID, row.SubjectID, row.StudentName, row.SubjectName,
			row.ExamRoom, row.ExamSeat,
			strconv.FormatUint(uint64(row.TotalScore), 10),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write totals row for %s: %w", row.StudentID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
