package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/qazedu/examcenter/internal/exam"
	appI18n "github.com/qazedu/examcenter/internal/i18n"
	"github.com/qazedu/examcenter/internal/model"
)

type startExamRequest struct {
	ExamID             int64        `json:"examId" validate:"required"`
	SelectedSubjectIDs []int64      `json:"selectedSubjectIds" validate:"required,min=1"`
	StudentID          int64        `json:"studentId" validate:"required"`
	Language           model.Locale `json:"language" validate:"required,oneof=kz ru"`
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	out, err := h.exams.StartExam(exam.StartExamInput{
		ExamID:     req.ExamID,
		SubjectIDs: req.SelectedSubjectIDs,
		StudentID:  req.StudentID,
		Locale:     req.Language,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"questionsBySubject": out.QuestionsBySubject,
		"resultId":           out.ResultID,
	})
}

type submitAnswersRequest struct {
	Answers []exam.AnswerSubmission `json:"answers" validate:"required,min=1,dive"`
}

// answerView hides grading state from submission responses.
type answerView struct {
	QuestionNumber int     `json:"question_number"`
	QuestionID     int64   `json:"question_id"`
	OptionIDs      []int64 `json:"option_ids"`
}

type subjectResultView struct {
	SubjectName string       `json:"subject_name"`
	Answers     []answerView `json:"answers"`
}

type resultView struct {
	ID        int64               `json:"id"`
	ExamID    int64               `json:"exam_id"`
	StudentID int64               `json:"student_id"`
	Subjects  []subjectResultView `json:"subjects"`
}

func newResultView(res *model.Result) resultView {
	view := resultView{ID: res.ID, ExamID: res.ExamID, StudentID: res.StudentID}
	for _, sr := range res.Subjects {
		sv := subjectResultView{SubjectName: sr.SubjectName}
		for _, a := range sr.Answers {
			sv.Answers = append(sv.Answers, answerView{
				QuestionNumber: a.QuestionNumber,
				QuestionID:     a.QuestionID,
				OptionIDs:      a.OptionIDs,
			})
		}
		view.Subjects = append(view.Subjects, sv)
	}
	return view
}

func (h *Handler) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req submitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, model.NewValidation("invalid request body: %v", err))
		return
	}
	if len(req.Answers) == 0 {
		h.respondError(w, r, model.NewValidation("%s", appI18n.T(r.Context(), "AnswersRequired")))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, r, model.NewValidation("%v", err))
		return
	}
	res, err := h.exams.SubmitAnswers(req.Answers)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": appI18n.T(r.Context(), "AnswersSaved"),
		"result":  newResultView(res),
	})
}

type getResultRequest struct {
	ExamID    int64 `json:"examId" validate:"required"`
	StudentID int64 `json:"studentId" validate:"required"`
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	var req getResultRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	report, err := h.exams.StudentResult(req.ExamID, req.StudentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"top10":         report.Top10,
		"studentResult": report.StudentResult,
		"studentRank":   report.StudentRank,
	})
}

type getResultForExamRequest struct {
	ExamID int64 `json:"examId" validate:"required"`
}

func (h *Handler) handleGetResultForExam(w http.ResponseWriter, r *http.Request) {
	var req getResultForExamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	var filter exam.ReportFilter
	if v := r.URL.Query().Get("subjectId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.respondError(w, r, model.NewValidation("invalid subjectId %q", v))
			return
		}
		filter.SubjectID = &id
	}
	if v := r.URL.Query().Get("classId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.respondError(w, r, model.NewValidation("invalid classId %q", v))
			return
		}
		filter.ClassID = &id
	}
	report, err := h.exams.ExamResults(req.ExamID, filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"top10":      report.Top10,
		"allResults": report.AllResults,
	})
}

func (h *Handler) handleStudentHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		h.respondError(w, r, model.NewValidation("invalid student id"))
		return
	}
	summaries, err := h.exams.StudentHistory(studentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": summaries})
}
