// Package dispatch sends text messages through the live WhatsApp handle and
// records every attempt.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
)

// HandleSource exposes the coordinator's current handle.
type HandleSource interface {
	CurrentHandle() bridge.Handle
}

// Request is a send request as received from the API.
type Request struct {
	Phone   string `json:"phone" validate:"min=8,max=20"`
	Message string `json:"message" validate:"min=1,max=4096"`
}

// Result identifies the record of a delivered message.
type Result struct {
	ID int64 `json:"id"`
}

// Hooks observe the outcome of each delivery attempt.
type Hooks struct {
	OnSent   func(ctx context.Context, rec *store.MessageRecord)
	OnFailed func(ctx context.Context, rec *store.MessageRecord)
}

// Dispatcher validates, records and delivers outbound text messages.
type Dispatcher struct {
	store    store.Store
	source   HandleSource
	validate *validator.Validate
	hooks    Hooks
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher reading readiness from st and the handle from source.
func NewDispatcher(st store.Store, source HandleSource) *Dispatcher {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Dispatcher{
		store:    st,
		source:   source,
		validate: v,
		log:      slog.Default(),
	}
}

// WithHooks sets delivery observers and returns d.
func (d *Dispatcher) WithHooks(h Hooks) *Dispatcher {
	d.hooks = h
	return d
}

// Send delivers message to phone. Failures are returned as *Error.
func (d *Dispatcher) Send(ctx context.Context, phone, message string) (*Result, error) {
	h := d.source.CurrentHandle()
	if h == nil {
		return nil, notReady()
	}
	cur, err := d.store.GetState(ctx)
	if err != nil {
		return nil, internal(fmt.Errorf("failed to load connection state: %w", err))
	}
	if !cur.Ready {
		return nil, notReady()
	}

	req := Request{Phone: phone, Message: message}
	if fields := d.check(req); fields != nil {
		return nil, invalidRequest(fields)
	}
	address, err := bridge.FormatAddress(req.Phone)
	if err != nil {
		return nil, invalidRequest(map[string]string{"phone": "must contain digits"})
	}

	rec, err := d.store.CreateMessage(ctx, req.Phone, req.Message)
	if err != nil {
		return nil, internal(fmt.Errorf("failed to create message: %w", err))
	}

	sendErr := h.SendText(ctx, address, req.Message)

	// The outcome is recorded even if the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)

	if sendErr != nil {
		d.log.Warn("message delivery failed", "id", rec.ID, "error", sendErr)
		errText := sendErr.Error()
		updated, err := d.store.UpdateMessageStatus(recordCtx, rec.ID, store.StatusFailed, &errText)
		if err != nil {
			return nil, internal(fmt.Errorf("failed to record delivery failure: %w", err))
		}
		if d.hooks.OnFailed != nil {
			d.hooks.OnFailed(recordCtx, updated)
		}
		return nil, sendFailed(rec.ID, sendErr)
	}

	updated, err := d.store.UpdateMessageStatus(recordCtx, rec.ID, store.StatusSent, nil)
	if err != nil {
		return nil, internal(fmt.Errorf("failed to record delivery: %w", err))
	}
	if d.hooks.OnSent != nil {
		d.hooks.OnSent(recordCtx, updated)
	}

	d.log.Info("message sent", "id", rec.ID)
	return &Result{ID: rec.ID}, nil
}

// check returns field-level reasons, or nil if req is valid.
func (d *Dispatcher) check(req Request) map[string]string {
	err := d.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = reason(fe)
	}
	return fields
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
