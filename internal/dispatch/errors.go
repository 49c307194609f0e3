package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindNotReady       Kind = "NOT_READY"
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindSendFailed     Kind = "SEND_FAILED"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Sentinels for errors.Is.
var (
	ErrNotReady       = errors.New("WhatsApp client not ready")
	ErrInvalidRequest = errors.New("invalid request data")
	ErrSendFailed     = errors.New("message failed")
	ErrInternal       = errors.New("internal error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotReady:
		return ErrNotReady
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindSendFailed:
		return ErrSendFailed
	default:
		return ErrInternal
	}
}

// Error is returned by Dispatcher.Send.
type Error struct {
	Kind Kind
	// Fields maps request field to reason, for KindInvalidRequest.
	Fields map[string]string
	// Detail is the delivery error text, for KindSendFailed.
	Detail string
	// ID of the record the failure was written to, if one was created.
	ID  int64
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidRequest:
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(parts, ", "))
	case KindSendFailed:
		return fmt.Sprintf("%s: %s", ErrSendFailed, e.Detail)
	case KindInternal:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", ErrInternal, e.Err)
		}
	}
	return e.Kind.sentinel().Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func notReady() *Error {
	return &Error{Kind: KindNotReady}
}

func invalidRequest(fields map[string]string) *Error {
	return &Error{Kind: KindInvalidRequest, Fields: fields}
}

func sendFailed(id int64, err error) *Error {
	return &Error{Kind: KindSendFailed, ID: id, Detail: err.Error(), Err: err}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}
