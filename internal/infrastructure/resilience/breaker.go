package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the circuit
	Threshold uint32
	// Cooldown is how long the circuit stays open before it reports half-open
	Cooldown time.Duration
	// OnStateChange is called with the breaker lock released
	OnStateChange func(name string, from State, to State)
	// Now replaces time.Now in tests
	Now func() time.Time
}

// Breaker tracks the health of a single backend from the outcomes of calls
// made against it. It never rejects a call: callers record every outcome
// and read State to report whether the backend is believed to be up.
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	failures uint32
	openedAt time.Time
}

// New creates a circuit breaker. Zero settings mean 3 failures and 5s cooldown.
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = 3
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 5 * time.Second
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	state, change := b.refresh()
	b.mu.Unlock()

	b.notify(change)
	return state
}

// Failures returns the current consecutive failure count
func (b *Breaker) Failures() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Record notes the outcome of one call. A nil error closes the circuit; a
// failure while half-open reopens it.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	_, refreshed := b.refresh()

	var change transition
	switch {
	case err == nil:
		change = b.setState(StateClosed)
	case b.state == StateHalfOpen:
		change = b.setState(StateOpen)
	default:
		b.failures++
		if b.failures >= b.settings.Threshold {
			change = b.setState(StateOpen)
		}
	}
	b.mu.Unlock()

	b.notify(refreshed)
	b.notify(change)
}

type transition struct {
	from, to State
	changed  bool
}

// refresh must be called with b.mu held
func (b *Breaker) refresh() (State, transition) {
	if b.state == StateOpen && b.settings.Now().Sub(b.openedAt) >= b.settings.Cooldown {
		return StateHalfOpen, b.setState(StateHalfOpen)
	}
	return b.state, transition{}
}

// setState must be called with b.mu held
func (b *Breaker) setState(state State) transition {
	if b.state == state {
		return transition{}
	}

	prev := b.state
	b.state = state
	if state == StateOpen {
		b.openedAt = b.settings.Now()
	}
	if state == StateClosed {
		b.failures = 0
	}
	return transition{from: prev, to: state, changed: true}
}

func (b *Breaker) notify(t transition) {
	if t.changed && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, t.from, t.to)
	}
}
