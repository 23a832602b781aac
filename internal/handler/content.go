package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qazedu/examcenter/internal/model"
)

func urlID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, model.NewValidation("invalid %s", param)
	}
	return id, nil
}

type createSubjectRequest struct {
	Names map[model.Locale]string `json:"names" validate:"required,min=1"`
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := h.store.CreateSubject(req.Names)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "subjectID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subject)
}

func (h *Handler) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "subjectID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeleteSubject(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}

type createTopicRequest struct {
	SubjectID int64                   `json:"subjectId" validate:"required"`
	Titles    map[model.Locale]string `json:"titles" validate:"required,min=1"`
}

func (h *Handler) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := h.store.CreateTopic(req.SubjectID, req.Titles)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "topicID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, topic)
}

func (h *Handler) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "topicID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeleteTopic(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}

type questionOption struct {
	Text    string `json:"text" validate:"required"`
	Correct bool   `json:"correct"`
}

type questionRequest struct {
	TopicID  int64              `json:"topicId" validate:"required"`
	Language model.Locale       `json:"language" validate:"required,oneof=kz ru"`
	Text     string             `json:"text" validate:"required"`
	ImageRef string             `json:"imageRef"`
	Type     model.QuestionType `json:"type" validate:"required,oneof=onePoint twoPoints"`
	Options  []questionOption   `json:"options" validate:"required,min=2,dive"`
}

func (req questionRequest) toModel(id int64) (model.Question, []model.Option) {
	q := model.Question{
		ID:       id,
		TopicID:  req.TopicID,
		Locale:   req.Language,
		Text:     req.Text,
		ImageRef: req.ImageRef,
		Type:     req.Type,
	}
	var options []model.Option
	for _, o := range req.Options {
		options = append(options, model.Option{Text: o.Text, Correct: o.Correct})
	}
	return q, options
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	q, options := req.toModel(0)
	id, err := h.store.CreateQuestion(q, options)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "questionID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q, err := h.store.GetQuestion(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "questionID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req questionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	q, options := req.toModel(id)
	if err := h.store.UpdateQuestion(q, options); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "updated"})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "questionID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeleteQuestion(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}

type createExamRequest struct {
	ExamType   model.ExamType `json:"examType" validate:"required,oneof=last random"`
	StartedAt  time.Time      `json:"startedAt" validate:"required"`
	FinishedAt time.Time      `json:"finishedAt" validate:"required"`
	SubjectIDs []int64        `json:"subjectIds" validate:"required,min=1"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	ex, err := h.store.CreateExam(req.ExamType, req.StartedAt, req.FinishedAt, req.SubjectIDs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, ex)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "examID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ex, err := h.store.GetExam(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "examID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeleteExam(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}
