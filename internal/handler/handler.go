// Package handler exposes the exam-center HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/qazedu/examcenter/internal/auth"
	"github.com/qazedu/examcenter/internal/exam"
	appI18n "github.com/qazedu/examcenter/internal/i18n"
	"github.com/qazedu/examcenter/internal/model"
	"github.com/qazedu/examcenter/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	exams    *exam.Service
	auth     *auth.Service
	validate *validator.Validate
}

// New creates a new Handler.
func New(s *store.Store, exams *exam.Service, authSvc *auth.Service) *Handler {
	return &Handler{
		store:    s,
		exams:    exams,
		auth:     authSvc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Post("/startExam", h.handleStartExam)
		r.Post("/submitOrUpdateAnswer", h.handleSubmitAnswers)
		r.Post("/getResult", h.handleGetResult)
		r.Post("/getResultForExam", h.handleGetResultForExam)
		r.Get("/getAllResultsForStudent/{studentID}", h.handleStudentHistory)

		r.Post("/subjects", h.handleCreateSubject)
		r.Get("/subjects/{subjectID}", h.handleGetSubject)
		r.Delete("/subjects/{subjectID}", h.handleDeleteSubject)
		r.Post("/topics", h.handleCreateTopic)
		r.Get("/topics/{topicID}", h.handleGetTopic)
		r.Delete("/topics/{topicID}", h.handleDeleteTopic)
		r.Post("/questions", h.handleCreateQuestion)
		r.Get("/questions/{questionID}", h.handleGetQuestion)
		r.Put("/questions/{questionID}", h.handleUpdateQuestion)
		r.Delete("/questions/{questionID}", h.handleDeleteQuestion)
		r.Post("/exams", h.handleCreateExam)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Delete("/exams/{examID}", h.handleDeleteExam)
	})
}

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// errorBody is the uniform failure payload.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// notFoundMessageIDs maps NotFoundError resources to translation ids.
var notFoundMessageIDs = map[string]string{
	"exam":           "ExamNotFound",
	"subject":        "SubjectNotFound",
	"subjects":       "SubjectNotFound",
	"question":       "QuestionNotFound",
	"result":         "ResultNotFound",
	"student result": "StudentResultNotFound",
}

// respondError translates a domain error into the JSON error contract:
// validation 400, not-found 404, conflict 409, everything else 500.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *model.NotFoundError
		conflict   *model.ConflictError
		validation *model.ValidationError
	)
	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, errorBody{Message: validation.Msg})
	case errors.As(err, &notFound):
		msg := notFound.Error()
		if id, ok := notFoundMessageIDs[notFound.Resource]; ok {
			msg = appI18n.T(r.Context(), id)
		}
		respondJSON(w, http.StatusNotFound, errorBody{Message: msg})
	case errors.As(err, &conflict):
		respondJSON(w, http.StatusConflict, errorBody{Message: conflict.Msg})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{
			Message: appI18n.T(r.Context(), "InternalError"),
		})
	}
}

// decodeAndValidate parses the JSON body into v and runs struct validation.
func (h *Handler) decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidation("invalid request body: %v", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return model.NewValidation("%v", err)
	}
	return nil
}
