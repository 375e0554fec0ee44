package types

import "strings"

// ContextID identifies a navigable context (tab, top frame) owned by the host
type ContextID string

// FrameID identifies a sub-frame inside a navigable context
type FrameID string

// Readiness is the document loading state reported by a navigable context
type Readiness string

const (
	ReadinessLoading     Readiness = "loading"
	ReadinessInteractive Readiness = "interactive"
	ReadinessComplete    Readiness = "complete"
)

// rank orders readiness states; unknown values rank as loading
func (r Readiness) rank() int {
	switch r {
	case ReadinessInteractive:
		return 1
	case ReadinessComplete:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether r has reached or passed other
func (r Readiness) AtLeast(other Readiness) bool {
	return r.rank() >= other.rank()
}

// Valid reports whether r is one of the known states
func (r Readiness) Valid() bool {
	switch r {
	case ReadinessLoading, ReadinessInteractive, ReadinessComplete:
		return true
	}
	return false
}

// ParseReadiness maps document.readyState values onto Readiness
func ParseReadiness(s string) Readiness {
	r := Readiness(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return ReadinessLoading
	}
	return r
}

// NavigableContext describes one browsing surface as seen by the core.
// The host owns its lifetime; the core only keeps this snapshot.
type NavigableContext struct {
	ID        ContextID  `json:"id"`
	URL       string     `json:"url"`
	Readiness Readiness  `json:"readiness"`
	// ParentID is the context that opened this one, for popups
	ParentID  *ContextID `json:"parent_id,omitempty"`
}
