package store

import (
	"database/sql"
	"fmt"

	"github.com/qazedu/examcenter/internal/model"
)

// CreateSubject inserts a subject with bilingual names.
func (s *Store) CreateSubject(names model.LocalizedText) (int64, error) {
	doc, err := marshalDoc(names)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`INSERT INTO subjects (names) VALUES (?)`, doc)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSubject returns a subject with its ordered topic ids.
func (s *Store) GetSubject(id int64) (*model.Subject, error) {
	var doc string
	err := s.db.QueryRow(`SELECT names FROM subjects WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("subject")
	}
	if err != nil {
		return nil, err
	}
	sub := &model.Subject{ID: id, Names: model.LocalizedText{}}
	if err := unmarshalDoc(doc, &sub.Names); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id FROM topics WHERE subject_id = ? ORDER BY position, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tid int64
		if err := rows.Scan(&tid); err != nil {
			return nil, err
		}
		sub.TopicIDs = append(sub.TopicIDs, tid)
	}
	return sub, rows.Err()
}

// ListSubjects returns all subjects without topic lists.
func (s *Store) ListSubjects() ([]model.Subject, error) {
	rows, err := s.db.Query(`SELECT id, names FROM subjects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		var doc string
		if err := rows.Scan(&sub.ID, &doc); err != nil {
			return nil, err
		}
		sub.Names = model.LocalizedText{}
		if err := unmarshalDoc(doc, &sub.Names); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// DeleteSubject removes a subject and everything under it in one
// transaction, deepest level first: options, questions, topics, subject.
func (s *Store) DeleteSubject(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRow(`SELECT id FROM subjects WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return model.NewNotFound("subject")
	} else if err != nil {
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM options WHERE question_id IN (
			SELECT q.id FROM questions q
			JOIN topics t ON q.topic_id = t.id
			WHERE t.subject_id = ?)`, id,
	); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM questions WHERE topic_id IN (SELECT id FROM topics WHERE subject_id = ?)`, id,
	); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM topics WHERE subject_id = ?`, id); err != nil {
		return fmt.Errorf("delete topics: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM subjects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return tx.Commit()
}

// CreateTopic inserts a topic at the end of its subject's topic list.
func (s *Store) CreateTopic(subjectID int64, titles model.LocalizedText) (int64, error) {
	if _, err := s.GetSubject(subjectID); err != nil {
		return 0, err
	}
	doc, err := marshalDoc(titles)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO topics (subject_id, position, titles)
		 VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM topics WHERE subject_id = ?), ?)`,
		subjectID, subjectID, doc,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTopic returns a topic with its per-locale ordered question id lists.
func (s *Store) GetTopic(id int64) (*model.Topic, error) {
	var t model.Topic
	var doc string
	err := s.db.QueryRow(
		`SELECT id, subject_id, position, titles FROM topics WHERE id = ?`, id,
	).Scan(&t.ID, &t.SubjectID, &t.Position, &doc)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("topic")
	}
	if err != nil {
		return nil, err
	}
	t.Titles = model.LocalizedText{}
	if err := unmarshalDoc(doc, &t.Titles); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, locale FROM questions WHERE topic_id = ? ORDER BY position, id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t.Questions = map[model.Locale][]int64{}
	for rows.Next() {
		var qid int64
		var loc model.Locale
		if err := rows.Scan(&qid, &loc); err != nil {
			return nil, err
		}
		t.Questions[loc] = append(t.Questions[loc], qid)
	}
	return &t, rows.Err()
}

// DeleteTopic removes a topic and its questions and options in one transaction.
func (s *Store) DeleteTopic(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRow(`SELECT id FROM topics WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return model.NewNotFound("topic")
	} else if err != nil {
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE topic_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE topic_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM topics WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// validateQuestion enforces the correct-option invariant: twoPoints
// questions carry exactly 2 correct options, onePoint exactly 1.
func validateQuestion(q model.Question, options []model.Option) error {
	if q.Type != model.QuestionOnePoint && q.Type != model.QuestionTwoPoints {
		return model.NewValidation("unknown question type %q", q.Type)
	}
	if !model.ValidLocale(q.Locale) {
		return model.NewValidation("unknown locale %q", q.Locale)
	}
	if len(options) == 0 {
		return model.NewValidation("question requires options")
	}
	correct := 0
	for _, o := range options {
		if o.Correct {
			correct++
		}
	}
	if want := q.Type.CorrectCount(); correct != want {
		return model.NewValidation("%s question requires exactly %d correct options, got %d", q.Type, want, correct)
	}
	return nil
}

// CreateQuestion inserts a question and its options and attaches it to
// the end of the topic's question list for the question's locale.
// All writes happen in one transaction.
func (s *Store) CreateQuestion(q model.Question, options []model.Option) (int64, error) {
	if err := validateQuestion(q, options); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var topicExists int64
	if err := tx.QueryRow(`SELECT id FROM topics WHERE id = ?`, q.TopicID).Scan(&topicExists); err == sql.ErrNoRows {
		return 0, model.NewNotFound("topic")
	} else if err != nil {
		return 0, err
	}

	res, err := tx.Exec(
		`INSERT INTO questions (topic_id, locale, position, text, image_ref, qtype, point)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE topic_id = ? AND locale = ?), ?, ?, ?, ?)`,
		q.TopicID, q.Locale, q.TopicID, q.Locale, q.Text, q.ImageRef, q.Type, q.Type.Points(),
	)
	if err != nil {
		return 0, err
	}
	qid, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertOptions(tx, qid, options); err != nil {
		return 0, err
	}
	return qid, tx.Commit()
}

func insertOptions(tx *sql.Tx, questionID int64, options []model.Option) error {
	for i, o := range options {
		if _, err := tx.Exec(
			`INSERT INTO options (question_id, position, text, correct) VALUES (?, ?, ?, ?)`,
			questionID, i+1, o.Text, o.Correct,
		); err != nil {
			return fmt.Errorf("insert option: %w", err)
		}
	}
	return nil
}

// GetQuestion returns a question with its ordered options.
func (s *Store) GetQuestion(id int64) (*model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, topic_id, locale, position, text, image_ref, qtype, point FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.TopicID, &q.Locale, &q.Position, &q.Text, &q.ImageRef, &q.Type, &q.Point)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("question")
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, question_id, position, text, correct FROM options WHERE question_id = ? ORDER BY position, id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Position, &o.Text, &o.Correct); err != nil {
			return nil, err
		}
		q.Options = append(q.Options, o)
	}
	return &q, rows.Err()
}

// UpdateQuestion replaces a question's content and options in one
// transaction. Moving the question to another topic or locale appends
// it to the end of the target list.
func (s *Store) UpdateQuestion(q model.Question, options []model.Option) error {
	if err := validateQuestion(q, options); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var curTopic int64
	var curLocale model.Locale
	err = tx.QueryRow(`SELECT topic_id, locale FROM questions WHERE id = ?`, q.ID).Scan(&curTopic, &curLocale)
	if err == sql.ErrNoRows {
		return model.NewNotFound("question")
	}
	if err != nil {
		return err
	}

	if curTopic != q.TopicID || curLocale != q.Locale {
		var topicExists int64
		if err := tx.QueryRow(`SELECT id FROM topics WHERE id = ?`, q.TopicID).Scan(&topicExists); err == sql.ErrNoRows {
			return model.NewNotFound("topic")
		} else if err != nil {
			return err
		}
		_, err = tx.Exec(
			`UPDATE questions SET topic_id = ?, locale = ?,
			 position = (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE topic_id = ? AND locale = ?)
			 WHERE id = ?`,
			q.TopicID, q.Locale, q.TopicID, q.Locale, q.ID,
		)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`UPDATE questions SET text = ?, image_ref = ?, qtype = ?, point = ? WHERE id = ?`,
		q.Text, q.ImageRef, q.Type, q.Type.Points(), q.ID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM options WHERE question_id = ?`, q.ID); err != nil {
		return err
	}
	if err := insertOptions(tx, q.ID, options); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteQuestion removes a question and its options.
func (s *Store) DeleteQuestion(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRow(`SELECT id FROM questions WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return model.NewNotFound("question")
	} else if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM options WHERE question_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTopicQuestions returns a topic's questions for one locale in
// list order, options included.
func (s *Store) ListTopicQuestions(topicID int64, locale model.Locale) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id FROM questions WHERE topic_id = ? AND locale = ? ORDER BY position, id`,
		topicID, locale,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var questions []model.Question
	for _, id := range ids {
		q, err := s.GetQuestion(id)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, nil
}
