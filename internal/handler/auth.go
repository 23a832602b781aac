package handler

import (
	"errors"
	"net/http"

	appI18n "github.com/qazedu/examcenter/internal/i18n"
	"github.com/qazedu/examcenter/internal/model"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	pair, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		var validation *model.ValidationError
		if errors.As(err, &validation) {
			respondJSON(w, http.StatusUnauthorized, errorBody{
				Message: appI18n.T(r.Context(), "InvalidCredentials"),
			})
			return
		}
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	pair, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		var validation *model.ValidationError
		if errors.As(err, &validation) {
			respondJSON(w, http.StatusUnauthorized, errorBody{Message: validation.Msg})
			return
		}
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}
