// Package health provides health reporting and acquisition retry scheduling.
package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/config"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
)

// Status represents the health status of the service.
type Status struct {
	State           string     `json:"state"`
	Ready           bool       `json:"ready"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
	LastSent        *time.Time `json:"last_sent,omitempty"`
	AcquireFailures int64      `json:"acquire_failures"`
	RetryCount      int        `json:"retry_count"`
	MessagesSent    int64      `json:"messages_sent"`
	MessagesFailed  int64      `json:"messages_failed"`
}

// Monitor tracks service health and schedules acquisition retries.
type Monitor struct {
	stateMachine *state.Machine
	log          *slog.Logger

	retryBackoff *backoff.ExponentialBackOff
	maxRetries   int
	retryCount   int

	startTime       time.Time
	lastSent        time.Time
	acquireFailures atomic.Int64
	messagesSent    atomic.Int64
	messagesFailed  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(cfg *config.Config, sm *state.Machine) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.AcquireBaseDelay
	bo.MaxInterval = cfg.AcquireMaxDelay
	bo.MaxElapsedTime = 0 // Never stop based on elapsed time
	bo.Reset()

	return &Monitor{
		stateMachine: sm,
		log:          slog.Default(),
		retryBackoff: bo,
		maxRetries:   cfg.AcquireMaxRetries,
		startTime:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the health monitoring.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
	m.log.Info("health monitor started", "acquire_max_retries", m.maxRetries)
}

// Stop cancels pending retries and waits for them to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	m.log.Info("health monitor stopped")
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentState, _ := m.stateMachine.State(context.Background())

	s := Status{
		State:           string(currentState),
		Ready:           currentState.IsOperational(),
		UptimeSeconds:   int64(time.Since(m.startTime).Seconds()),
		AcquireFailures: m.acquireFailures.Load(),
		RetryCount:      m.retryCount,
		MessagesSent:    m.messagesSent.Load(),
		MessagesFailed:  m.messagesFailed.Load(),
	}
	if !m.lastSent.IsZero() {
		t := m.lastSent
		s.LastSent = &t
	}
	return s
}

// RecordMessageSent records a delivered message.
func (m *Monitor) RecordMessageSent() {
	m.messagesSent.Add(1)
	m.mu.Lock()
	m.lastSent = time.Now()
	m.mu.Unlock()
}

// RecordMessageFailed records a delivery failure.
func (m *Monitor) RecordMessageFailed() {
	m.messagesFailed.Add(1)
}

// RecordAcquireFailure records a failed handle acquisition.
func (m *Monitor) RecordAcquireFailure() {
	m.acquireFailures.Add(1)
}

// nextRetryDelay returns the next delay and the attempt number, or false once retries are spent.
func (m *Monitor) nextRetryDelay() (time.Duration, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retryCount >= m.maxRetries {
		return 0, m.retryCount, false
	}
	m.retryCount++
	return m.retryBackoff.NextBackOff(), m.retryCount, true
}

// ResetRetryBackoff resets the backoff to initial values.
func (m *Monitor) ResetRetryBackoff() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retryBackoff.Reset()
	m.retryCount = 0
}

// ScheduleRetry runs callback after the next backoff delay.
// It returns false without scheduling when retries are disabled or exhausted.
func (m *Monitor) ScheduleRetry(callback func()) bool {
	delay, attempt, ok := m.nextRetryDelay()
	if !ok {
		if m.maxRetries > 0 {
			m.log.Error("max acquisition retries exceeded", "max_retries", m.maxRetries)
		}
		return false
	}

	m.log.Info("scheduling acquisition retry", "delay", delay, "attempt", attempt)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			callback()
		case <-m.ctx.Done():
		}
	}()
	return true
}

// OnConnectionRestored should be called when a handle becomes ready.
func (m *Monitor) OnConnectionRestored() {
	m.ResetRetryBackoff()
	m.log.Debug("connection ready, retry backoff reset")
}
