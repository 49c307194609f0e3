package api

import (
	"errors"
	"net/http"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/dispatch"
)

// Error messages
const (
	MsgNotReady       = "WhatsApp client not ready"
	MsgInvalidRequest = "Invalid request data"
	MsgMessageFailed  = "Message failed"
	MsgInternal       = "Internal server error"
)

// APIError is the body of every failed request.
type APIError struct {
	Success bool        `json:"success"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`

	status int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Status returns the HTTP status code for the error.
func (e *APIError) Status() int {
	return e.status
}

// NewNotReadyError creates an error for when no paired session is available.
func NewNotReadyError() *APIError {
	return &APIError{Message: MsgNotReady, status: http.StatusBadRequest}
}

// NewInvalidInputError creates an error carrying field-level reasons.
func NewInvalidInputError(details map[string]string) *APIError {
	return &APIError{Message: MsgInvalidRequest, Details: details, status: http.StatusBadRequest}
}

// NewMessageFailedError creates an error for a failed delivery.
func NewMessageFailedError(detail string) *APIError {
	return &APIError{Message: MsgMessageFailed, Details: detail, status: http.StatusInternalServerError}
}

// NewInternalError creates an error for internal errors. The cause is logged, not returned.
func NewInternalError() *APIError {
	return &APIError{Message: MsgInternal, status: http.StatusInternalServerError}
}

// fromDispatchError maps a dispatcher failure onto its API error.
func fromDispatchError(err error) *APIError {
	var derr *dispatch.Error
	if !errors.As(err, &derr) {
		return NewInternalError()
	}

	switch derr.Kind {
	case dispatch.KindNotReady:
		return NewNotReadyError()
	case dispatch.KindInvalidRequest:
		return NewInvalidInputError(derr.Fields)
	case dispatch.KindSendFailed:
		return NewMessageFailedError(derr.Detail)
	default:
		return NewInternalError()
	}
}
