package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	Enabled          bool
	OnStateChange    func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns the documented defaults. Enabled is
// true here; the zero value of the struct describes a disabled breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		Enabled:          true,
	}
}

// CircuitBreaker gates whether a collector may attempt a collection at
// all. One instance per collector; the owning collector serializes
// Allow/RecordSuccess/RecordFailure so the half-open state admits exactly
// one probe at a time.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	enabled          bool
	onStateChange    func(name string, from, to State)

	mu             sync.Mutex
	state          State
	failures       int
	successes      int
	lastFailTime   time.Time
	phaseEnteredAt time.Time
}

// Snapshot is a read-only copy of the breaker state.
type Snapshot struct {
	State          State     `json:"-"`
	StateName      string    `json:"state"`
	Failures       int       `json:"consecutive_failures"`
	Successes      int       `json:"consecutive_successes"`
	LastFailure    time.Time `json:"last_failure_at,omitempty"`
	PhaseEnteredAt time.Time `json:"phase_entered_at"`
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &CircuitBreaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		enabled:          cfg.Enabled,
		onStateChange:    cfg.OnStateChange,
		state:            StateClosed,
		phaseEnteredAt:   time.Now(),
	}
}

// Allow reports whether an attempt is permitted now. The only mutation it
// performs is the lazy Open -> HalfOpen transition once the open timeout
// has elapsed; there is no background timer.
func (cb *CircuitBreaker) Allow() bool {
	if !cb.enabled {
		return true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true

	case StateOpen:
		if time.Since(cb.phaseEnteredAt) >= cb.timeout {
			cb.transitionTo(StateHalfOpen)
			return true
		}
		return false
	}

	return false
}

// RecordSuccess reports a successful collection to the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.enabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transitionTo(StateClosed)
		}
	}
}

// RecordFailure reports a failed collection to the breaker. Cancellations
// are not failures and must not be reported here.
func (cb *CircuitBreaker) RecordFailure() {
	if !cb.enabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailTime = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(newState State) {
	oldState := cb.state
	cb.state = newState
	cb.failures = 0
	cb.successes = 0
	cb.phaseEnteredAt = time.Now()

	if cb.onStateChange != nil {
		go cb.onStateChange(cb.name, oldState, newState)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Enabled() bool {
	return cb.enabled
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.phaseEnteredAt = time.Now()
}

func (cb *CircuitBreaker) Stats() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		State:          cb.state,
		StateName:      cb.state.String(),
		Failures:       cb.failures,
		Successes:      cb.successes,
		LastFailure:    cb.lastFailTime,
		PhaseEnteredAt: cb.phaseEnteredAt,
	}
}
