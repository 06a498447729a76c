package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps each domain error to a distinct status and stable code
// so the terminal front-end can render a specific message per case.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		status, code = http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, domain.ErrInvalidCredential):
		status, code = http.StatusUnauthorized, "invalid_credential"
	case errors.Is(err, domain.ErrUnknownAccount):
		status, code = http.StatusNotFound, "unknown_account"
	case errors.Is(err, domain.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, domain.ErrSameAccountTransfer):
		status, code = http.StatusBadRequest, "same_account_transfer"
	case errors.Is(err, domain.ErrWeakSecret):
		status, code = http.StatusBadRequest, "weak_secret"
	case errors.Is(err, domain.ErrInsufficientFunds):
		status, code = http.StatusConflict, "insufficient_funds"
	case errors.Is(err, domain.ErrPersistenceFailure):
		status, code = http.StatusInternalServerError, "persistence_failure"
	case errors.Is(err, domain.ErrCorruptState):
		status, code = http.StatusInternalServerError, "corrupt_state"
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	respondJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}
