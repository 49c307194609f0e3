package state

import (
	"context"
	"sync"

	"github.com/qmuntal/stateless"
)

// TransitionCallback is called when a state transition occurs.
type TransitionCallback func(ctx context.Context, from, to State, trigger Trigger)

// Machine wraps the stateless state machine with pairing-lifecycle behavior.
type Machine struct {
	sm          *stateless.StateMachine
	callbacks   []TransitionCallback
	callbacksMu sync.RWMutex
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine() *Machine {
	m := &Machine{
		callbacks: make([]TransitionCallback, 0),
	}

	sm := stateless.NewStateMachine(StateDisconnected)

	sm.Configure(StateDisconnected).
		Permit(TriggerStart, StateStarting).
		Permit(TriggerQRIssued, StateQRPending).
		Permit(TriggerReconnected, StateReady).
		Permit(TriggerShutdown, StateShuttingDown).
		Ignore(TriggerDisconnect).
		Ignore(TriggerReset).
		Ignore(TriggerAcquireFailed)

	// An acquisition is in flight but no QR has been shown yet.
	sm.Configure(StateStarting).
		Permit(TriggerQRIssued, StateQRPending).
		Permit(TriggerHandleAcquired, StateReady).
		Permit(TriggerAcquireFailed, StateDisconnected).
		Permit(TriggerReset, StateDisconnected).
		Permit(TriggerShutdown, StateShuttingDown).
		Ignore(TriggerDisconnect)

	// Every rotated QR code re-enters QRPending.
	sm.Configure(StateQRPending).
		PermitReentry(TriggerQRIssued).
		Permit(TriggerHandleAcquired, StateReady).
		Permit(TriggerAcquireFailed, StateDisconnected).
		Permit(TriggerReset, StateDisconnected).
		Permit(TriggerShutdown, StateShuttingDown).
		Ignore(TriggerDisconnect)

	sm.Configure(StateReady).
		Permit(TriggerDisconnect, StateDisconnected).
		Permit(TriggerQRIssued, StateQRPending).
		Permit(TriggerReset, StateDisconnected).
		Permit(TriggerShutdown, StateShuttingDown).
		Ignore(TriggerReconnected)

	sm.Configure(StateShuttingDown)
	// No transitions out of ShuttingDown

	sm.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		m.callbacksMu.RLock()
		callbacks := make([]TransitionCallback, len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.callbacksMu.RUnlock()

		from := t.Source.(State)
		to := t.Destination.(State)
		trigger := t.Trigger.(Trigger)

		for _, cb := range callbacks {
			cb(ctx, from, to, trigger)
		}
	})

	m.sm = sm
	return m
}

// State returns the current state.
func (m *Machine) State(ctx context.Context) (State, error) {
	state, err := m.sm.State(ctx)
	if err != nil {
		return "", err
	}
	return state.(State), nil
}

// Fire triggers a state transition.
func (m *Machine) Fire(ctx context.Context, trigger Trigger, args ...any) error {
	return m.sm.FireCtx(ctx, trigger, args...)
}

// CanFire returns true if the trigger can be fired from the current state.
func (m *Machine) CanFire(ctx context.Context, trigger Trigger, args ...any) (bool, error) {
	return m.sm.CanFireCtx(ctx, trigger, args...)
}

// OnTransition registers a callback to be called on state transitions.
func (m *Machine) OnTransition(cb TransitionCallback) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// MustState returns the current state, panicking on error.
func (m *Machine) MustState() State {
	state, err := m.State(context.Background())
	if err != nil {
		panic(err)
	}
	return state
}

// IsReady returns true if a paired handle is live.
func (m *Machine) IsReady() bool {
	return m.MustState() == StateReady
}

// IsPairing returns true while a handle acquisition is in flight.
func (m *Machine) IsPairing() bool {
	return m.MustState().IsPairing()
}
