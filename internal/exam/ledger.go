package exam

import (
	"errors"

	"github.com/qazedu/examcenter/internal/model"
)

// AnswerSubmission is one entry of a submit-answers batch.
type AnswerSubmission struct {
	ExamID         int64        `json:"examId" validate:"required"`
	StudentID      int64        `json:"studentId" validate:"required"`
	SubjectID      int64        `json:"subjectId" validate:"required"`
	QuestionID     int64        `json:"questionId" validate:"required"`
	OptionIDs      []int64      `json:"optionIds" validate:"required,min=1,unique"`
	QuestionNumber int          `json:"questionNumber" validate:"required,gt=0"`
	Locale         model.Locale `json:"language" validate:"required,oneof=kz ru"`
}

// SubmitAnswers records a batch of answers against the (exam, student)
// result, creating it if the student never called start-exam. The
// first entry's exam and student ids are authoritative for the whole
// batch. Each answer is keyed by question number within its subject:
// resubmission replaces the stored option set in place, leaving
// grading state untouched. The result is saved once after the batch.
func (s *Service) SubmitAnswers(batch []AnswerSubmission) (*model.Result, error) {
	if len(batch) == 0 {
		return nil, model.NewValidation("answers are required")
	}
	examID, studentID := batch[0].ExamID, batch[0].StudentID

	for attempt := 0; ; attempt++ {
		res, err := s.loadOrInitResult(examID, studentID)
		if err != nil {
			return nil, err
		}
		if err := s.applyBatch(res, batch); err != nil {
			return nil, err
		}
		// Single write at the end of the batch: insert for a fresh
		// result, version-checked update for an existing one.
		if res.ID == 0 {
			_, err = s.store.CreateResult(res)
		} else {
			err = s.store.SaveResult(res)
		}
		if err == nil {
			return res, nil
		}
		var conflict *model.ConflictError
		if !errors.As(err, &conflict) || attempt >= saveRetries {
			return nil, err
		}
		// Lost the race against a concurrent write; reload and reapply.
	}
}

// loadOrInitResult returns the stored result for (exam, student), or a
// fresh unpersisted one (ID zero) when the student never called
// start-exam.
func (s *Service) loadOrInitResult(examID, studentID int64) (*model.Result, error) {
	res, err := s.store.GetResult(examID, studentID)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	if _, err := s.store.GetExam(examID); err != nil {
		return nil, err
	}
	return &model.Result{
		ExamID:         examID,
		StudentID:      studentID,
		OverallPercent: "0%",
	}, nil
}

func (s *Service) applyBatch(res *model.Result, batch []AnswerSubmission) error {
	for _, a := range batch {
		if _, err := s.store.GetQuestion(a.QuestionID); err != nil {
			return err
		}
		subject, err := s.store.GetSubject(a.SubjectID)
		if err != nil {
			return err
		}
		name := subject.Names.Get(a.Locale)

		sr := res.FindSubject(name)
		if sr == nil {
			res.Subjects = append(res.Subjects, model.SubjectResult{
				SubjectName: name,
				Percent:     "0%",
			})
			sr = &res.Subjects[len(res.Subjects)-1]
		}

		if existing := sr.FindAnswer(a.QuestionNumber); existing != nil {
			existing.OptionIDs = a.OptionIDs
			existing.QuestionID = a.QuestionID
		} else {
			sr.Answers = append(sr.Answers, model.Answer{
				QuestionNumber: a.QuestionNumber,
				QuestionID:     a.QuestionID,
				OptionIDs:      a.OptionIDs,
			})
		}
	}
	return nil
}
