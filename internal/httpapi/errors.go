package httpapi

import (
	"errors"
	"net/http"

	"github.com/magnolia-hms/finance/internal/errs"
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
func notFound(w http.ResponseWriter) {
	writeErr(w, http.StatusNotFound, "not_found", "not_found")
}
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeDomainErr maps domain sentinels onto HTTP statuses and stable codes.
func writeDomainErr(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrTooFewLines):
		unprocessable(w, msg, "too_few_lines")
	case errors.Is(err, errs.ErrInvalidAmount):
		unprocessable(w, msg, "invalid_amount")
	case errors.Is(err, errs.ErrUnbalancedEntry):
		unprocessable(w, msg, "unbalanced_entry")
	case errors.Is(err, errs.ErrMissingAccount):
		unprocessable(w, msg, "missing_account")
	case errors.Is(err, errs.ErrBudgetGateClosed):
		unprocessable(w, msg, "budget_gate_closed")
	case errors.Is(err, errs.ErrImmutableEntry):
		writeErr(w, http.StatusConflict, msg, "immutable_entry")
	case errors.Is(err, errs.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, msg, "invalid_transition")
	case errors.Is(err, errs.ErrBudgetExceeded):
		writeErr(w, http.StatusConflict, msg, "budget_exceeded")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, msg, "conflict")
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusBadRequest, msg, "validation_error")
	case errors.Is(err, errs.ErrStructuralImbalance):
		writeErr(w, http.StatusInternalServerError, msg, "structural_imbalance")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
