// Package exam implements the exam-taking flow: building per-student
// question snapshots, recording answer submissions, grading, and
// ranking results into leaderboards.
package exam

import (
	"fmt"
	"math/rand/v2"

	"github.com/qazedu/examcenter/internal/model"
	"github.com/qazedu/examcenter/internal/store"
)

// saveRetries bounds how many times a save is retried after losing an
// optimistic version race.
const saveRetries = 2

// Service holds shared dependencies for exam operations.
type Service struct {
	store *store.Store
}

// NewService creates the exam service.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// OptionView is an answer choice as shown to the student, with the
// correctness flag stripped.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// SnapshotQuestion is one numbered question in a student's exam
// snapshot. QuestionNumber is 1-based and scoped to the subject.
type SnapshotQuestion struct {
	QuestionNumber int          `json:"question_number"`
	QuestionID     int64        `json:"question_id"`
	Text           string       `json:"text"`
	ImageRef       string       `json:"image_ref,omitempty"`
	Point          int          `json:"point"`
	Options        []OptionView `json:"options"`
}

// StartExamInput describes a start-exam request.
type StartExamInput struct {
	ExamID     int64
	SubjectIDs []int64
	StudentID  int64
	Locale     model.Locale
}

// StartExamOutput is the snapshot delivered to the client plus the id
// of the freshly created empty result.
type StartExamOutput struct {
	QuestionsBySubject map[string][]SnapshotQuestion `json:"questions_by_subject"`
	ResultID           int64                         `json:"result_id"`
}

// StartExam builds the per-student question snapshot for the selected
// subjects in the requested locale and creates the initial empty
// result. Starting the same exam twice for one student fails with a
// conflict and leaves the existing result untouched.
func (s *Service) StartExam(in StartExamInput) (*StartExamOutput, error) {
	existing, err := s.store.GetResult(in.ExamID, in.StudentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewConflict("exam already started for this student")
	}

	ex, err := s.store.GetExam(in.ExamID)
	if err != nil {
		return nil, err
	}

	selected := make(map[int64]bool, len(in.SubjectIDs))
	for _, id := range in.SubjectIDs {
		selected[id] = true
	}

	questionsBySubject := make(map[string][]SnapshotQuestion)
	var subjectResults []model.SubjectResult
	for _, snap := range ex.Subjects {
		if !selected[snap.SubjectID] {
			continue
		}
		name := snap.Names.Get(in.Locale)
		questions, err := s.snapshotQuestions(snap, in.Locale)
		if err != nil {
			return nil, err
		}
		if ex.Type == model.ExamTypeRandom {
			rand.Shuffle(len(questions), func(i, j int) {
				questions[i], questions[j] = questions[j], questions[i]
			})
		}
		for i := range questions {
			questions[i].QuestionNumber = i + 1
		}
		questionsBySubject[name] = questions
		subjectResults = append(subjectResults, model.SubjectResult{
			SubjectName: name,
			Percent:     "0%",
		})
	}
	if len(subjectResults) == 0 {
		return nil, model.NewNotFound("subjects")
	}

	res := &model.Result{
		ExamID:         in.ExamID,
		StudentID:      in.StudentID,
		Subjects:       subjectResults,
		OverallPercent: "0%",
	}
	if _, err := s.store.CreateResult(res); err != nil {
		return nil, err
	}

	return &StartExamOutput{
		QuestionsBySubject: questionsBySubject,
		ResultID:           res.ID,
	}, nil
}

// snapshotQuestions flattens a subject snapshot's topics into the
// locale's question list, options reduced to id and text. Correct
// options never leave this function.
func (s *Service) snapshotQuestions(snap model.SubjectSnapshot, locale model.Locale) ([]SnapshotQuestion, error) {
	var out []SnapshotQuestion
	for _, topic := range snap.Topics {
		for _, qid := range topic.Questions[locale] {
			q, err := s.store.GetQuestion(qid)
			if err != nil {
				return nil, fmt.Errorf("load question %d: %w", qid, err)
			}
			sq := SnapshotQuestion{
				QuestionID: q.ID,
				Text:       q.Text,
				ImageRef:   q.ImageRef,
				Point:      q.Point,
			}
			for _, o := range q.Options {
				sq.Options = append(sq.Options, OptionView{ID: o.ID, Text: o.Text})
			}
			out = append(out, sq)
		}
	}
	return out, nil
}
