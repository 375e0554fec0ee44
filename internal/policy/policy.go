package policy

import (
	"github.com/GriffinCanCode/AiPlugs/backend/internal/pattern"
)

// SecurityPolicy is the resolved, process-wide bypass policy.
// The zero value is the safe default: nothing is bypassed.
type SecurityPolicy struct {
	AllowAutoplay        bool     `json:"allow_autoplay" yaml:"allow_autoplay"`
	AllowInsecureCert    bool     `json:"allow_insecure_cert" yaml:"allow_insecure_cert"`
	BypassCSP            bool     `json:"bypass_csp" yaml:"bypass_csp"`
	BypassFrameOptions   bool     `json:"bypass_frame_options" yaml:"bypass_frame_options"`
	BypassCORS           bool     `json:"bypass_cors" yaml:"bypass_cors"`
	AutoGrantPermissions bool     `json:"auto_grant_permissions" yaml:"auto_grant_permissions"`
	ApplyTo              []string `json:"apply_to" yaml:"apply_to"`
}

// RewritesHeaders reports whether any per-response header rewrite is enabled
func (p SecurityPolicy) RewritesHeaders() bool {
	return p.BypassCSP || p.BypassFrameOptions || p.BypassCORS
}

// clone returns a copy that shares no slices with p
func (p SecurityPolicy) clone() SecurityPolicy {
	p.ApplyTo = append([]string(nil), p.ApplyTo...)
	return p
}

// Store holds the policy loaded at startup. There is no mutation API; a policy
// change requires a restart.
type Store struct {
	policy   SecurityPolicy
	patterns *pattern.Set
	issues   []Issue
}

// NewStore freezes p into a Store and compiles its hostname patterns.
func NewStore(p SecurityPolicy, issues ...Issue) *Store {
	p = p.clone()
	return &Store{
		policy:   p,
		patterns: pattern.Compile(p.ApplyTo),
		issues:   append([]Issue(nil), issues...),
	}
}

// Resolve returns a copy of the resolved policy.
func (s *Store) Resolve() SecurityPolicy {
	if s == nil {
		return SecurityPolicy{}
	}
	return s.policy.clone()
}

// Patterns returns the compiled apply_to set.
func (s *Store) Patterns() *pattern.Set {
	if s == nil {
		return pattern.Compile(nil)
	}
	return s.patterns
}

// Issues returns the problems found while loading the configuration.
func (s *Store) Issues() []Issue {
	if s == nil {
		return nil
	}
	return append([]Issue(nil), s.issues...)
}
