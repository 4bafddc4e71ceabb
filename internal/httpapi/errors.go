package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinybooks/tinybooks/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }

// writeDomainErr maps the shared error sentinels onto HTTP statuses.
func writeDomainErr(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, msg, "not_found")
	case errors.Is(err, errs.ErrCancelled):
		writeErr(w, http.StatusConflict, msg, "already_cancelled")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, msg, "conflict")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, msg, "forbidden")
	case errors.Is(err, errs.ErrInsufficientStock):
		writeErr(w, http.StatusUnprocessableEntity, msg, "insufficient_stock")
	case errors.Is(err, errs.ErrUnbalancedLegs):
		writeErr(w, http.StatusUnprocessableEntity, msg, "unbalanced_legs")
	case errors.Is(err, errs.ErrUnprocessable):
		writeErr(w, http.StatusUnprocessableEntity, msg, "validation_error")
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusBadRequest, msg, "invalid_request")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
