package state

// Trigger represents an event that causes a state transition.
type Trigger string

const (
	TriggerStart          Trigger = "start"
	TriggerQRIssued       Trigger = "qr_issued"
	TriggerHandleAcquired Trigger = "handle_acquired"
	TriggerAcquireFailed  Trigger = "acquire_failed"
	TriggerDisconnect     Trigger = "disconnect"
	TriggerReconnected    Trigger = "reconnected"
	TriggerReset          Trigger = "reset"
	TriggerShutdown       Trigger = "shutdown"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
