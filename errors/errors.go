package errors

import (
	"errors"
	"fmt"
	"net/http"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is an API-facing error carrying the HTTP status it should be
// reported with.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// New creates a new Error with the given message and status code
func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

var (
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrInvalidPassword     = New("invalid email or password", http.StatusUnprocessableEntity)
)

// Sentinel errors shared between the repositories and the services. The
// services translate these to *Error values at the API boundary.
var (
	InActiveUserError = errors.New("user account is deactivated")
	ErrChatNotFound   = errors.New("conversation not found")
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content exceeds the maximum length")
)

// ErrorHandler is wired into the rate limit middleware on the auth routes.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"message": "too many requests, try again later",
		"status":  http.StatusText(http.StatusTooManyRequests),
	})
	c.Abort()
}
