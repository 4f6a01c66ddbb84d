package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"family-os/internal/llm"
	"family-os/internal/planner"
	"family-os/internal/session"
	"family-os/internal/store"
)

// APIError is the body of every failed request.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondFailure maps operation errors onto HTTP statuses. Anything not
// recognised is treated as an upstream (model or store) failure.
func respondFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, planner.ErrUnknownSlot):
		respondError(c, http.StatusNotFound, "unknown_slot", err)
	case errors.Is(err, planner.ErrNoPlan):
		respondError(c, http.StatusNotFound, "no_plan", err)
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, session.ErrUnknownMember):
		respondError(c, http.StatusNotFound, "unknown_member", err)
	case errors.Is(err, session.ErrNoSession):
		respondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, llm.ErrMalformedOutput):
		respondError(c, http.StatusBadGateway, "malformed_output", err)
	default:
		respondError(c, http.StatusBadGateway, "upstream_failure", err)
	}
}
