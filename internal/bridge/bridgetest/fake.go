// Package bridgetest provides fake Launcher and Handle implementations for tests.
package bridgetest

import (
	"context"
	"errors"
	"sync"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
)

// SentMessage is a message captured by FakeHandle.
type SentMessage struct {
	Address string
	Body    string
}

// FakeHandle implements bridge.Handle for testing.
type FakeHandle struct {
	mu         sync.Mutex
	device     string
	sendErr    error
	closeErr   error
	closed     bool
	sent       []SentMessage
	listener   func(bridge.Status)
	registered int
}

// NewFakeHandle creates a handle reporting device as its DeviceInfo.
func NewFakeHandle(device string) *FakeHandle {
	return &FakeHandle{device: device}
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return h.closeErr
}

func (h *FakeHandle) SendText(ctx context.Context, address, body string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return h.sendErr
	}
	h.sent = append(h.sent, SentMessage{Address: address, Body: body})
	return nil
}

func (h *FakeHandle) DeviceInfo() string {
	return h.device
}

func (h *FakeHandle) OnStateChange(fn func(bridge.Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = fn
	h.registered++
}

// SetSendError makes every following SendText fail with err.
func (h *FakeHandle) SetSendError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendErr = err
}

// SetCloseError makes Close return err.
func (h *FakeHandle) SetCloseError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeErr = err
}

// EmitStatus delivers s to the registered listener. It reports false if none is registered.
func (h *FakeHandle) EmitStatus(s bridge.Status) bool {
	h.mu.Lock()
	fn := h.listener
	h.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(s)
	return true
}

func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *FakeHandle) Sent() []SentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SentMessage, len(h.sent))
	copy(out, h.sent)
	return out
}

// Registrations returns how many times OnStateChange was called.
func (h *FakeHandle) Registrations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registered
}

// Acquisition is one pending FakeLauncher.Acquire call, driven by the test.
type Acquisition struct {
	hooks  bridge.Hooks
	ctx    context.Context
	result chan acquireResult
}

type acquireResult struct {
	handle bridge.Handle
	err    error
}

// ShowQR invokes the acquisition's QR hook.
func (a *Acquisition) ShowQR(image string) {
	if a.hooks.OnQR != nil {
		a.hooks.OnQR(image)
	}
}

// Succeed completes the acquisition with h.
func (a *Acquisition) Succeed(h bridge.Handle) {
	a.result <- acquireResult{handle: h}
}

// Fail completes the acquisition with err.
func (a *Acquisition) Fail(err error) {
	a.result <- acquireResult{err: err}
}

// Cancelled reports whether the acquisition context has been cancelled.
func (a *Acquisition) Cancelled() bool {
	return a.ctx.Err() != nil
}

// FakeLauncher implements bridge.Launcher. Each Acquire call blocks until the
// test completes it through the Acquisition returned by Next.
type FakeLauncher struct {
	mu      sync.Mutex
	calls   []*Acquisition
	pending chan *Acquisition
}

func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{pending: make(chan *Acquisition, 16)}
}

func (l *FakeLauncher) Acquire(ctx context.Context, hooks bridge.Hooks) (bridge.Handle, error) {
	a := &Acquisition{hooks: hooks, ctx: ctx, result: make(chan acquireResult, 1)}

	l.mu.Lock()
	l.calls = append(l.calls, a)
	l.mu.Unlock()
	l.pending <- a

	select {
	case r := <-a.result:
		return r.handle, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Next returns the next Acquire call, waiting for it to arrive.
func (l *FakeLauncher) Next(ctx context.Context) (*Acquisition, error) {
	select {
	case a := <-l.pending:
		return a, nil
	case <-ctx.Done():
		return nil, errors.New("no acquisition started")
	}
}

// Calls returns how many times Acquire was called.
func (l *FakeLauncher) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

var _ bridge.Launcher = (*FakeLauncher)(nil)
var _ bridge.Handle = (*FakeHandle)(nil)
