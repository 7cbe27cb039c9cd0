// Package httpkit provides HTTP response utilities and middleware.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const msgInternal = "internal server error"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values (anywhere in the chain) use their Kind; anything
// else is logged and reported as a generic 500.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := apperr.As(err); ok {
		status := domainErr.HTTPStatus()
		message := domainErr.Message
		if status >= http.StatusInternalServerError {
			logError(c, status, err)
			if domainErr.Kind == apperr.KindInternal || domainErr.Kind == apperr.KindUnknown {
				message = safeInternalMessage(domainErr.Message)
			}
		}
		c.JSON(status, ErrorResponse{
			Error:   message,
			Code:    domainErr.Kind.String(),
			Details: domainErr.Details,
		})
		return true
	}

	logError(c, http.StatusInternalServerError, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal, Code: apperr.KindInternal.String()})
	return true
}

func safeInternalMessage(message string) string {
	if message == "" {
		return msgInternal
	}
	return message
}

func logError(c *gin.Context, status int, err error) {
	log, ok := c.Get(ContextLoggerKey)
	if !ok {
		return
	}
	if l, ok := log.(*logger.Logger); ok {
		l.WithContext(c.Request.Context()).HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
	}
}
