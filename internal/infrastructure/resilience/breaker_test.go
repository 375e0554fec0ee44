package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("connection refused")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(clock *fakeClock, threshold uint32, onChange func(string, State, State)) *Breaker {
	return New("matcher", Settings{
		Threshold:     threshold,
		Cooldown:      time.Second,
		OnStateChange: onChange,
		Now:           clock.Now,
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "success resets the failure run",
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
		{
			name:          "success closes an open circuit",
			requests:      []bool{false, false, false, true},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(0, 0)}
			breaker := newTestBreaker(clock, 3, nil)

			for _, success := range tt.requests {
				var err error
				if !success {
					err = errBackend
				}
				breaker.Record(err)
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerHalfOpen(t *testing.T) {
	t.Run("success after cooldown closes", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		breaker := newTestBreaker(clock, 1, nil)

		breaker.Record(errBackend)
		require.Equal(t, StateOpen, breaker.State())
		clock.Advance(time.Second)
		assert.Equal(t, StateHalfOpen, breaker.State())

		breaker.Record(nil)
		assert.Equal(t, StateClosed, breaker.State())
		assert.Zero(t, breaker.Failures())
	})

	t.Run("failure after cooldown reopens", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		breaker := newTestBreaker(clock, 3, nil)

		for i := 0; i < 3; i++ {
			breaker.Record(errBackend)
		}
		clock.Advance(time.Second)

		breaker.Record(errBackend)
		assert.Equal(t, StateOpen, breaker.State())
		clock.Advance(time.Second / 2)
		assert.Equal(t, StateOpen, breaker.State())
	})
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string
	clock := &fakeClock{now: time.Unix(0, 0)}
	breaker := newTestBreaker(clock, 2, func(name string, from State, to State) {
		assert.Equal(t, "matcher", name)
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	breaker.Record(errBackend)
	breaker.Record(errBackend)
	clock.Advance(time.Second)
	breaker.Record(nil)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
