package store

import (
	"database/sql"
	"time"

	"github.com/qazedu/examcenter/internal/model"
)

// CreateExam snapshots the given subjects (names plus per-locale
// question id lists of every topic) into a new exam row. The snapshot
// is taken once; later content edits do not affect the exam.
func (s *Store) CreateExam(examType model.ExamType, startedAt, finishedAt time.Time, subjectIDs []int64) (*model.Exam, error) {
	if len(subjectIDs) == 0 {
		return nil, model.NewValidation("exam requires at least one subject")
	}
	if !finishedAt.After(startedAt) {
		return nil, model.NewValidation("finishedAt must be after startedAt")
	}

	var snapshots []model.SubjectSnapshot
	for _, id := range subjectIDs {
		sub, err := s.GetSubject(id)
		if err != nil {
			return nil, err
		}
		snap := model.SubjectSnapshot{SubjectID: sub.ID, Names: sub.Names}
		for _, tid := range sub.TopicIDs {
			topic, err := s.GetTopic(tid)
			if err != nil {
				return nil, err
			}
			snap.Topics = append(snap.Topics, model.TopicSnapshot{
				TopicID:   topic.ID,
				Questions: topic.Questions,
			})
		}
		snapshots = append(snapshots, snap)
	}

	doc, err := marshalDoc(snapshots)
	if err != nil {
		return nil, err
	}
	status := model.ExamActive
	if !time.Now().Before(finishedAt) {
		status = model.ExamInactive
	}
	res, err := s.db.Exec(
		`INSERT INTO exams (status, exam_type, started_at, finished_at, subjects) VALUES (?, ?, ?, ?, ?)`,
		status, examType, startedAt, finishedAt, doc,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Exam{
		ID:         id,
		Status:     status,
		Type:       examType,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Subjects:   snapshots,
	}, nil
}

// GetExam returns an exam with its embedded subject snapshots.
func (s *Store) GetExam(id int64) (*model.Exam, error) {
	var e model.Exam
	var doc string
	err := s.db.QueryRow(
		`SELECT id, status, exam_type, started_at, finished_at, subjects FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Status, &e.Type, &e.StartedAt, &e.FinishedAt, &doc)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("exam")
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalDoc(doc, &e.Subjects); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteExam removes an exam and all of its results in one transaction.
func (s *Store) DeleteExam(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRow(`SELECT id FROM exams WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return model.NewNotFound("exam")
	} else if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM results WHERE exam_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM exams WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeactivateFinishedExams flips active exams whose window has closed to
// inactive. Idempotent; returns the number of exams flipped.
func (s *Store) DeactivateFinishedExams(now time.Time) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE exams SET status = ? WHERE status = ? AND finished_at < ?`,
		model.ExamInactive, model.ExamActive, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
