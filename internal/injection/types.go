package injection

import (
	"encoding/json"
	"strings"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Phase is the declared lifecycle point at which a script should run
type Phase string

const (
	PhaseStart Phase = "document_start"
	PhaseEnd   Phase = "document_end"
	PhaseIdle  Phase = "document_idle"
)

// ParsePhase returns the phase named by s and whether it was recognized
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PhaseStart, PhaseEnd, PhaseIdle:
		return p, true
	}
	return PhaseIdle, false
}

// Requires returns the readiness a context must reach before a script of
// this phase may run. Unrecognized phases wait for a complete document.
func (p Phase) Requires() types.Readiness {
	switch p {
	case PhaseStart:
		return types.ReadinessLoading
	case PhaseEnd:
		return types.ReadinessInteractive
	default:
		return types.ReadinessComplete
	}
}

func (p Phase) order() int {
	switch p {
	case PhaseStart:
		return 0
	case PhaseEnd:
		return 1
	default:
		return 2
	}
}

// Script describes one injectable unit as returned by the matcher.
type Script struct {
	URL    string          `json:"url"`
	Phase  Phase           `json:"run_at"`
	Config json.RawMessage `json:"config,omitempty"`
}

// DeliveryState tracks one script inside one document
type DeliveryState string

const (
	StatePending   DeliveryState = "pending"
	StateScheduled DeliveryState = "scheduled"
	StateDelivered DeliveryState = "delivered"
	StateSkipped   DeliveryState = "skipped"
	StateAbandoned DeliveryState = "abandoned"
)

// Request asks the scheduler to deliver scripts into a context.
// Frame is empty for top-level and in-page navigations.
type Request struct {
	Context   types.ContextID
	Frame     types.FrameID
	NavID     string
	URL       string
	Readiness types.Readiness
	Scripts   []Script
}

// Entry is a script whose source has been resolved to an absolute URL
type Entry struct {
	Src    string          `json:"src"`
	Phase  Phase           `json:"run_at"`
	Config json.RawMessage `json:"config,omitempty"`
}
