package app

import (
	"context"
	"sync"
	"time"
)

type ConnState int

const (
	StateUnknown ConnState = iota
	StateConnected
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// HealthSnapshot is the monitor's current belief about the service. Status
// is nil unless the last probe succeeded.
type HealthSnapshot struct {
	State  ConnState
	Reason string
	Status *HealthStatus
}

type HealthProber interface {
	Health(ctx context.Context) (*HealthStatus, error)
}

// HealthMonitor probes service availability. While disconnected it re-probes
// on a fixed interval; once connected no retry timer runs. Probe failures
// become state, never errors raised to the caller.
type HealthMonitor struct {
	prober   HealthProber
	interval time.Duration
	logger   *Logger

	mu       sync.Mutex
	state    ConnState
	reason   string
	status   *HealthStatus
	onChange func(HealthSnapshot)

	refresh chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHealthMonitor(prober HealthProber, interval time.Duration, logger *Logger) *HealthMonitor {
	return &HealthMonitor{
		prober:   prober,
		interval: interval,
		logger:   logger,
		state:    StateUnknown,
		refresh:  make(chan struct{}, 1),
	}
}

// OnChange registers a callback invoked after every probe with the fresh
// snapshot. Set it before Start.
func (m *HealthMonitor) OnChange(fn func(HealthSnapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *HealthMonitor) Snapshot() HealthSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return HealthSnapshot{State: m.state, Reason: m.reason, Status: m.status}
}

// Probe runs a single health check and applies the transition.
func (m *HealthMonitor) Probe(ctx context.Context) HealthSnapshot {
	status, err := m.prober.Health(ctx)

	m.mu.Lock()
	prev := m.state
	if err != nil {
		m.state = StateDisconnected
		m.reason = err.Error()
		m.status = nil
	} else {
		m.state = StateConnected
		m.reason = ""
		m.status = status
	}
	snap := HealthSnapshot{State: m.state, Reason: m.reason, Status: m.status}
	onChange := m.onChange
	m.mu.Unlock()

	if snap.State != prev {
		if snap.State == StateConnected {
			m.logger.Info("api reachable", map[string]interface{}{
				"documents": snap.Status.DocumentCount(),
			})
		} else {
			m.logger.Warn("api unreachable", map[string]interface{}{
				"reason": snap.Reason,
			})
		}
	}
	if onChange != nil {
		onChange(snap)
	}
	return snap
}

// Refresh requests an immediate probe from the running loop, e.g. after an
// upload or a document clear changed the remote state.
func (m *HealthMonitor) Refresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

// Start probes once immediately, then keeps the connectivity state current
// until the context is cancelled or Stop is called.
func (m *HealthMonitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		snap := m.Probe(ctx)
		for {
			if snap.State == StateDisconnected {
				timer := time.NewTimer(m.interval)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-m.refresh:
					timer.Stop()
				case <-timer.C:
				}
			} else {
				select {
				case <-ctx.Done():
					return
				case <-m.refresh:
				}
			}
			snap = m.Probe(ctx)
		}
	}()
}

// Stop cancels the loop and waits for it; no probe fires afterwards.
func (m *HealthMonitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}
