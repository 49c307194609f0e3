package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/config"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/health"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
)

// ErrStopped is returned by Start and Refresh after Stop.
var ErrStopped = errors.New("bridge stopped")

const eventQueueSize = 64

// Bridge owns the one live client handle and the connection state derived from it.
//
// Client callbacks never touch state directly. They are queued on events and
// applied by a single goroutine under mu, so every ConnectionState write and
// every handle swap is serialized.
type Bridge struct {
	launcher     Launcher
	stateMachine *state.Machine
	store        store.Store
	monitor      *health.Monitor
	config       *config.Config
	log          *slog.Logger

	events chan Event

	handle        Handle
	generation    uint64
	cancelAcquire context.CancelFunc
	started       bool
	stopped       bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBridge creates a bridge. monitor may be nil, which disables retries and counters.
func NewBridge(cfg *config.Config, st store.Store, launcher Launcher, sm *state.Machine, monitor *health.Monitor) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		launcher:     launcher,
		stateMachine: sm,
		store:        st,
		monitor:      monitor,
		config:       cfg,
		log:          slog.Default(),
		events:       make(chan Event, eventQueueSize),
		ctx:          ctx,
		cancel:       cancel,
	}

	b.stateMachine.OnTransition(func(ctx context.Context, from, to state.State, trigger state.Trigger) {
		b.log.Info("state transition", "from", from, "to", to, "trigger", trigger)

		if err := b.store.LogTransition(ctx, from, to, string(trigger)); err != nil {
			b.log.Error("failed to log transition", "error", err)
		}
	})

	b.wg.Add(1)
	go b.processEvents()

	return b
}

// Start requests a new handle. Acquisition runs in the background; any
// acquisition already in flight is cancelled and any live handle is closed first.
func (b *Bridge) Start(ctx context.Context) error {
	return b.launch(ctx, "start")
}

// Refresh drops the current handle, marks the session not ready and starts over.
// A manual refresh also restores the acquisition retry budget.
func (b *Bridge) Refresh(ctx context.Context) error {
	if b.monitor != nil {
		b.monitor.ResetRetryBackoff()
	}
	return b.launch(ctx, "refresh")
}

func (b *Bridge) launch(ctx context.Context, reason string) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrStopped
	}

	if b.cancelAcquire != nil {
		b.cancelAcquire()
		b.cancelAcquire = nil
	}
	old := b.handle
	b.handle = nil
	b.generation++
	gen := b.generation

	var next store.ConnectionState
	if !b.started {
		next = store.NewConnectionState(b.config.SessionID)
		b.started = true
	} else {
		cur, err := b.store.GetState(ctx)
		if err != nil {
			b.log.Error("failed to load connection state", "error", err)
			cur = store.NewConnectionState(b.config.SessionID)
		}
		next = cur.Disconnected()
	}
	if err := b.store.SaveState(ctx, next); err != nil {
		b.log.Error("failed to save connection state", "error", err)
	}

	b.fire(ctx, state.TriggerReset)
	b.fire(ctx, state.TriggerStart)
	b.mu.Unlock()

	if old != nil {
		b.closeHandle(old)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || gen != b.generation {
		// Another Start or Stop won the race while the old handle was closing.
		return nil
	}

	acqCtx, cancel := context.WithCancel(b.ctx)
	b.cancelAcquire = cancel
	b.wg.Add(1)
	go b.acquire(acqCtx, gen)

	b.log.Info("acquiring whatsapp handle", "reason", reason, "generation", gen)
	return nil
}

func (b *Bridge) acquire(ctx context.Context, gen uint64) {
	defer b.wg.Done()

	hooks := Hooks{
		OnQR: func(image string) {
			b.EmitEvent(NewEvent(EventQRCode, gen, QRCodePayload{Image: image}))
		},
	}

	h, err := b.launcher.Acquire(ctx, hooks)
	if err != nil {
		b.deliver(NewEvent(EventAcquireFailed, gen, AcquireFailedPayload{Err: err}))
		return
	}

	if !b.deliver(NewEvent(EventHandleAcquired, gen, HandlePayload{Handle: h})) {
		b.closeHandle(h)
	}
}

// EmitEvent adds an event to the processing queue without blocking. The QR
// hook uses it since a newer code always follows a dropped one.
func (b *Bridge) EmitEvent(evt Event) {
	select {
	case b.events <- evt:
	default:
		b.log.Warn("event queue full, dropping event", "type", evt.Type)
	}
}

// deliver queues evt, blocking until there is room or the bridge stops.
func (b *Bridge) deliver(evt Event) bool {
	select {
	case b.events <- evt:
		return true
	case <-b.ctx.Done():
		return false
	}
}

// processEvents is the event processing goroutine.
func (b *Bridge) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case evt := <-b.events:
			if stale := b.handleEvent(evt); stale != nil {
				// Closing may emit status callbacks that queue back onto events.
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.closeHandle(stale)
				}()
			}
		}
	}
}

// handleEvent applies evt and returns a handle that must be closed, if any.
func (b *Bridge) handleEvent(evt Event) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped || evt.Generation != b.generation {
		b.log.Debug("dropping superseded event", "type", evt.Type, "generation", evt.Generation)
		if p, ok := evt.Payload.(HandlePayload); ok {
			return p.Handle
		}
		return nil
	}

	b.log.Debug("processing event", "type", evt.Type)

	switch evt.Type {
	case EventQRCode:
		b.handleQR(evt)
	case EventHandleAcquired:
		b.handleAcquired(evt)
	case EventAcquireFailed:
		b.handleAcquireFailed(evt)
	case EventStatusChange:
		b.handleStatus(evt)
	}
	return nil
}

func (b *Bridge) handleQR(evt Event) {
	payload, ok := evt.Payload.(QRCodePayload)
	if !ok {
		b.log.Error("invalid qr payload")
		return
	}

	ctx := b.ctx
	cur, err := b.store.GetState(ctx)
	if err != nil {
		b.log.Error("failed to load connection state", "error", err)
		return
	}
	if err := b.store.SaveState(ctx, cur.WithQR(payload.Image)); err != nil {
		b.log.Error("failed to save connection state", "error", err)
		return
	}
	b.fire(ctx, state.TriggerQRIssued)
	b.log.Info("new QR generated")
}

func (b *Bridge) handleAcquired(evt Event) {
	payload, ok := evt.Payload.(HandlePayload)
	if !ok {
		b.log.Error("invalid handle payload")
		return
	}

	ctx := b.ctx
	h := payload.Handle
	b.handle = h
	gen := evt.Generation

	cur, err := b.store.GetState(ctx)
	if err != nil {
		b.log.Error("failed to load connection state", "error", err)
		cur = store.NewConnectionState(b.config.SessionID)
	}
	if err := b.store.SaveState(ctx, cur.Connected(time.Now(), h.DeviceInfo())); err != nil {
		b.log.Error("failed to save connection state", "error", err)
	}
	b.fire(ctx, state.TriggerHandleAcquired)
	if b.monitor != nil {
		b.monitor.OnConnectionRestored()
	}

	// Status changes must not be dropped: a lost CONFLICT would leave the session ready.
	h.OnStateChange(func(s Status) {
		b.deliver(NewEvent(EventStatusChange, gen, StatusPayload{Status: s}))
	})

	b.log.Info("whatsapp is ready", "device", h.DeviceInfo())
}

func (b *Bridge) handleAcquireFailed(evt Event) {
	payload, ok := evt.Payload.(AcquireFailedPayload)
	if !ok {
		b.log.Error("invalid acquire failure payload")
		return
	}

	b.cancelAcquire = nil
	b.log.Error("failed to initialize whatsapp", "error", payload.Err)
	b.fire(b.ctx, state.TriggerAcquireFailed)

	if b.monitor == nil {
		return
	}
	b.monitor.RecordAcquireFailure()

	gen := evt.Generation
	b.monitor.ScheduleRetry(func() {
		b.retry(gen)
	})
}

// retry restarts acquisition unless something newer has happened since gen failed.
func (b *Bridge) retry(gen uint64) {
	b.mu.Lock()
	current := !b.stopped && b.generation == gen && b.handle == nil
	b.mu.Unlock()
	if !current {
		return
	}
	if err := b.launch(b.ctx, "retry"); err != nil {
		b.log.Warn("acquisition retry skipped", "error", err)
	}
}

func (b *Bridge) handleStatus(evt Event) {
	payload, ok := evt.Payload.(StatusPayload)
	if !ok {
		b.log.Error("invalid status payload")
		return
	}

	ctx := b.ctx
	status := payload.Status

	switch {
	case status.IsDisconnect():
		b.log.Warn("whatsapp disconnected", "status", status)
		cur, err := b.store.GetState(ctx)
		if err != nil {
			b.log.Error("failed to load connection state", "error", err)
			return
		}
		if err := b.store.SaveState(ctx, cur.Disconnected()); err != nil {
			b.log.Error("failed to save connection state", "error", err)
		}
		b.fire(ctx, state.TriggerDisconnect)

	case status == StatusConnected && b.handle != nil:
		cur, err := b.store.GetState(ctx)
		if err != nil {
			b.log.Error("failed to load connection state", "error", err)
			return
		}
		if cur.Ready {
			return
		}
		if err := b.store.SaveState(ctx, cur.Connected(time.Now(), b.handle.DeviceInfo())); err != nil {
			b.log.Error("failed to save connection state", "error", err)
		}
		b.fire(ctx, state.TriggerReconnected)
		if b.monitor != nil {
			b.monitor.OnConnectionRestored()
		}

	default:
		b.log.Info("session status", "status", status)
	}
}

// Stop cancels acquisition, closes the live handle and waits for background work.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	if b.cancelAcquire != nil {
		b.cancelAcquire()
		b.cancelAcquire = nil
	}
	h := b.handle
	b.handle = nil

	ctx := context.Background()
	if cur, err := b.store.GetState(ctx); err == nil && cur.Ready {
		if err := b.store.SaveState(ctx, cur.Disconnected()); err != nil {
			b.log.Error("failed to save connection state", "error", err)
		}
	}
	b.fire(ctx, state.TriggerShutdown)
	b.mu.Unlock()

	if h != nil {
		b.closeHandle(h)
	}

	b.cancel()
	b.wg.Wait()

	// Handles still queued were never adopted.
	for {
		select {
		case evt := <-b.events:
			if p, ok := evt.Payload.(HandlePayload); ok {
				b.closeHandle(p.Handle)
			}
		default:
			return
		}
	}
}

// CurrentHandle returns the live handle, or nil if there is none.
func (b *Bridge) CurrentHandle() Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// CurrentState returns the current state of the bridge.
func (b *Bridge) CurrentState() state.State {
	s, _ := b.stateMachine.State(context.Background())
	return s
}

// IsReady returns true if the bridge holds a ready handle.
func (b *Bridge) IsReady() bool {
	return b.CurrentState() == state.StateReady
}

func (b *Bridge) fire(ctx context.Context, trigger state.Trigger) {
	if err := b.stateMachine.Fire(ctx, trigger); err != nil {
		b.log.Error("state transition failed", "trigger", trigger, "error", err)
	}
}

func (b *Bridge) closeHandle(h Handle) {
	if err := h.Close(); err != nil {
		b.log.Warn("error closing client", "error", err)
	}
}
