package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/logging"
	"github.com/gin-gonic/gin"
)

// ctxKeyRecordID is the gin context key holding the authenticated record key.
const ctxKeyRecordID = "recordID"

// tokenVerifier checks an access token and returns the record key it binds.
type tokenVerifier interface {
	VerifyAccessToken(tokenString string) (string, error)
}

// RequireAuth gates a route group on a bearer token. The outcomes are
// distinct on purpose: no credential at all is 401, a credential that fails
// verification is 403, and an expired one is 403 with its own message.
func RequireAuth(verifier tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error:   "unauthorized",
				Message: "authorization required",
			})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error:   "unauthorized",
				Message: "authorization header must be a bearer token",
			})
			return
		}

		recordID, err := verifier.VerifyAccessToken(tokenString)
		if err != nil {
			message := "invalid token"
			kind := "invalid_token"
			if errors.Is(err, common.ErrTokenExpired) {
				message = "token expired"
				kind = "token_expired"
			}
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{
				Error:   kind,
				Message: message,
			})
			return
		}

		c.Set(ctxKeyRecordID, recordID)
		c.Next()
	}
}

// RequestLogger logs one line per request with method, path, status and
// elapsed time.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
