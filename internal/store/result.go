package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/qazedu/examcenter/internal/model"
)

// CreateResult inserts a new result. The UNIQUE(exam_id, student_id)
// constraint is the serialization point for duplicate starts; a
// violation surfaces as a ConflictError.
func (s *Store) CreateResult(r *model.Result) (int64, error) {
	doc, err := marshalDoc(r.Subjects)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO results (exam_id, student_id, doc, overall_score, total_correct, total_incorrect, overall_percent, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		r.ExamID, r.StudentID, doc, r.OverallScore, r.TotalCorrect, r.TotalIncorrect, r.OverallPercent, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, model.NewConflict("result already exists for this exam and student")
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ID = id
	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now
	return id, nil
}

func scanResult(scan func(...any) error) (*model.Result, error) {
	var r model.Result
	var doc string
	if err := scan(
		&r.ID, &r.ExamID, &r.StudentID, &doc,
		&r.OverallScore, &r.TotalCorrect, &r.TotalIncorrect, &r.OverallPercent,
		&r.Version, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(doc, &r.Subjects); err != nil {
		return nil, err
	}
	return &r, nil
}

const resultColumns = `id, exam_id, student_id, doc, overall_score, total_correct, total_incorrect, overall_percent, version, created_at, updated_at`

// GetResult returns the result for (exam, student), or nil when absent.
func (s *Store) GetResult(examID, studentID int64) (*model.Result, error) {
	row := s.db.QueryRow(
		`SELECT `+resultColumns+` FROM results WHERE exam_id = ? AND student_id = ?`,
		examID, studentID,
	)
	r, err := scanResult(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetResultByID returns a result by primary key.
func (s *Store) GetResultByID(id int64) (*model.Result, error) {
	row := s.db.QueryRow(`SELECT `+resultColumns+` FROM results WHERE id = ?`, id)
	r, err := scanResult(row.Scan)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("result")
	}
	return r, err
}

// SaveResult persists the full result state in a single update guarded
// by an optimistic version check. A stale version surfaces as a
// ConflictError so the caller can reload and retry.
func (s *Store) SaveResult(r *model.Result) error {
	doc, err := marshalDoc(r.Subjects)
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE results SET doc = ?, overall_score = ?, total_correct = ?, total_incorrect = ?, overall_percent = ?,
		 version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		doc, r.OverallScore, r.TotalCorrect, r.TotalIncorrect, r.OverallPercent, now, r.ID, r.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NewConflict("result was modified concurrently")
	}
	r.Version++
	r.UpdatedAt = now
	return nil
}

// ListResultsForExam returns all results of an exam in creation order.
func (s *Store) ListResultsForExam(examID int64) ([]model.Result, error) {
	rows, err := s.db.Query(
		`SELECT `+resultColumns+` FROM results WHERE exam_id = ? ORDER BY created_at, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Result
	for rows.Next() {
		r, err := scanResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// ListResultsForStudent returns all of a student's results, newest first.
func (s *Store) ListResultsForStudent(studentID int64) ([]model.Result, error) {
	rows, err := s.db.Query(
		`SELECT `+resultColumns+` FROM results WHERE student_id = ? ORDER BY created_at DESC, id DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Result
	for rows.Next() {
		r, err := scanResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}
