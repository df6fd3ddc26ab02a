package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/server/schema"
	"github.com/gin-gonic/gin"
)

// errorResponse is the uniform error body: a machine-readable kind plus a
// human message. Validation failures add per-field detail; Detail carries
// the wrapped cause chain in dev mode only.
type errorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Errors  []schema.FieldError `json:"errors,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// statusFor maps a service error to its HTTP status, kind, and message.
// Raw driver errors never leak: anything unmatched is an internal error.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, "validation_error", "validation failed"
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "authentication required"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusForbidden, "token_expired", "token expired"
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusForbidden, "token_expired", "refresh token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusForbidden, "invalid_token", "invalid token"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, "already_exists", "resource already exists"
	case errors.Is(err, common.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout", "store timeout"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

// respondError writes the mapped error body and aborts the chain.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, kind, message := statusFor(err)

	resp := errorResponse{Error: kind, Message: message}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
	}

	if h.dev {
		resp.Detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "error", err.Error(), "path", c.FullPath())
	}

	c.AbortWithStatusJSON(status, resp)
}
