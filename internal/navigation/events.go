package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/injection"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/matcher"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// ErrContextGone is returned by hosts when the target context no longer exists
var ErrContextGone = errors.New("navigable context gone")

// Views exposes the readiness of host-owned contexts
type Views interface {
	Readiness(id types.ContextID) (types.Readiness, error)
}

// Sink runs code in the execution context of id
type Sink interface {
	ExecuteInContext(ctx context.Context, id types.ContextID, code string) error
}

// Matcher maps a page URL to the scripts it should receive
type Matcher interface {
	Match(ctx context.Context, url string) matcher.Result
}

// Listener is the event surface a host drives
type Listener interface {
	OnNavigate(id types.ContextID, url string)
	OnInPageNavigate(id types.ContextID, url string)
	OnSubframeNavigate(id types.ContextID, frame types.FrameID, url string)
	OnReadinessChange(id types.ContextID, readiness types.Readiness)
	OnDestroyed(id types.ContextID)
}

// EventKind names a host event
type EventKind string

const (
	EventNavigate  EventKind = "navigate"
	EventInPage    EventKind = "in_page"
	EventSubframe  EventKind = "subframe"
	EventReadiness EventKind = "readiness"
	EventDestroyed EventKind = "destroyed"
)

// Event is one host notification. It is also the line format of replay logs.
type Event struct {
	Kind      EventKind       `json:"event"`
	Context   types.ContextID `json:"context"`
	Frame     types.FrameID   `json:"frame,omitempty"`
	URL       string          `json:"url,omitempty"`
	Readiness types.Readiness `json:"readiness,omitempty"`
}

// ErrInvalidEvent is returned by Event.Validate
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks that ev carries the fields its kind needs
func (ev Event) Validate() error {
	if ev.Context == "" {
		return fmt.Errorf("%w: missing context", ErrInvalidEvent)
	}
	switch ev.Kind {
	case EventNavigate, EventInPage:
		if ev.URL == "" {
			return fmt.Errorf("%w: %s without url", ErrInvalidEvent, ev.Kind)
		}
	case EventSubframe:
		if ev.Frame == "" || ev.URL == "" {
			return fmt.Errorf("%w: subframe needs frame and url", ErrInvalidEvent)
		}
	case EventReadiness:
		if !ev.Readiness.Valid() {
			return fmt.Errorf("%w: unknown readiness %q", ErrInvalidEvent, ev.Readiness)
		}
	case EventDestroyed:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}
	return nil
}

// Outcome classifies a finished delivery
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeFailed    Outcome = "failed"
	OutcomeInvalid   Outcome = "invalid"
)

// Delivery reports what happened to one batch
type Delivery struct {
	Type      Outcome         `json:"type"`
	ContextID types.ContextID `json:"context_id"`
	FrameID   types.FrameID   `json:"frame_id,omitempty"`
	NavID     string          `json:"nav_id,omitempty"`
	Scripts   []string        `json:"scripts"`
	Error     string          `json:"error,omitempty"`
	Time      time.Time       `json:"time"`
}

// Reporter receives delivery reports on the hub loop. It must not block.
type Reporter interface {
	Report(Delivery)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(Delivery)

// Report calls f
func (f ReporterFunc) Report(d Delivery) { f(d) }

func newDelivery(kind Outcome, b injection.Batch, err error) Delivery {
	d := Delivery{
		Type:      kind,
		ContextID: b.Context,
		FrameID:   b.Frame,
		NavID:     b.NavID,
		Scripts:   b.URLs(),
		Time:      time.Now(),
	}
	if err != nil {
		d.Error = err.Error()
	}
	return d
}
