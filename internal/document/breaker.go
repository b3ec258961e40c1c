package document

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrCircuitOpen = errors.New("document source circuit open")

type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// CircuitBreaker stops remote document fetches after repeated failures and
// lets a single probe through once the cool-down has elapsed.
type CircuitBreaker struct {
	mu         sync.Mutex
	state      CircuitState
	failures   int
	threshold  int
	timeout    time.Duration
	openedAt   time.Time
	probing    bool
	rejections int64
	now        func() time.Time
	log        zerolog.Logger
}

func NewCircuitBreaker(threshold int, timeout time.Duration, log zerolog.Logger) *CircuitBreaker {
	if threshold < 1 {
		threshold = 3
	}
	if timeout < time.Second {
		timeout = 5 * time.Minute
	}
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
		log:       log,
	}
}

// Call runs fn unless the circuit is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			cb.rejections++
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			cb.rejections++
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err == nil {
		if cb.state != StateClosed {
			cb.setState(StateClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.threshold {
		cb.openedAt = cb.now()
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	if cb.state == s {
		return
	}
	cb.log.Warn().Str("from", string(cb.state)).Str("to", string(s)).Int("failures", cb.failures).Msg("circuit state change")
	cb.state = s
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Rejections counts calls refused while open.
func (cb *CircuitBreaker) Rejections() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.rejections
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failures = 0
	cb.probing = false
}
