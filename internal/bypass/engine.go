package bypass

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/pattern"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/policy"
)

// Engine applies the security policy to responses and permission prompts.
// It holds only immutable state and is safe for concurrent use.
type Engine struct {
	policy   policy.SecurityPolicy
	patterns *pattern.Set
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.Named("bypass")
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// New creates an engine over the resolved policy in store.
func New(store *policy.Store, opts ...Option) *Engine {
	e := &Engine{
		policy:   store.Resolve(),
		patterns: store.Patterns(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger.Info("Security bypass configured",
		zap.Strings("apply_to", e.patterns.Patterns()),
		zap.Bool("bypass_csp", e.policy.BypassCSP),
		zap.Bool("bypass_frame_options", e.policy.BypassFrameOptions),
		zap.Bool("bypass_cors", e.policy.BypassCORS),
		zap.Bool("auto_grant_permissions", e.policy.AutoGrantPermissions),
	)
	return e
}

// Policy returns the policy the engine was built from
func (e *Engine) Policy() policy.SecurityPolicy {
	return e.policy
}

// RewritesHeaders reports whether any response could ever be rewritten.
// Hosts use it to skip response interception entirely.
func (e *Engine) RewritesHeaders() bool {
	return e.policy.RewritesHeaders() && e.patterns.Len() > 0
}

// Applies reports whether url is covered by the apply_to patterns
func (e *Engine) Applies(url string) bool {
	return e.patterns.Match(url)
}

// RewriteHeaders returns the headers a response for url should carry.
// Unmatched URLs get the input map back untouched. Matched URLs get a rewritten
// copy; the input is never modified. Any failure during evaluation degrades to
// pass-through.
func (e *Engine) RewriteHeaders(url string, headers http.Header) (out http.Header) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Header rewrite failed, passing through",
				zap.String("url", url), zap.Any("panic", r))
			out = headers
		}
	}()

	if !e.policy.RewritesHeaders() || !e.patterns.Match(url) {
		e.metrics.RecordResponse("passthrough")
		return headers
	}
	e.metrics.RecordResponse("matched")

	out = headers.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, class := range e.apply(headerMap(out)) {
		e.metrics.RecordHeaderRewrite(class)
	}
	return out
}

// RewriteEntries applies the same rewrite to an ordered name/value list, the
// shape a DevTools session reports. It returns the input and false when
// nothing changed.
func (e *Engine) RewriteEntries(url string, entries []HeaderEntry) (out []HeaderEntry, changed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Header rewrite failed, passing through",
				zap.String("url", url), zap.Any("panic", r))
			out, changed = entries, false
		}
	}()

	if !e.policy.RewritesHeaders() || !e.patterns.Match(url) {
		e.metrics.RecordResponse("passthrough")
		return entries, false
	}
	e.metrics.RecordResponse("matched")

	list := entryList(append([]HeaderEntry(nil), entries...))
	classes := e.apply(&list)
	for _, class := range classes {
		e.metrics.RecordHeaderRewrite(class)
	}
	if len(classes) == 0 {
		return entries, false
	}
	return list, true
}

// apply runs every enabled rewrite against h and returns the classes that
// changed something.
func (e *Engine) apply(h headerSet) []string {
	var classes []string

	if e.policy.BypassCSP && h.remove(cspHeaders...) > 0 {
		classes = append(classes, "csp")
	}
	if e.policy.BypassFrameOptions && h.remove(frameHeaders...) > 0 {
		classes = append(classes, "frame_options")
	}
	if e.policy.BypassCORS {
		h.removePrefix(corsPrefix)
		for _, kv := range corsHeaders {
			h.set(kv.Name, kv.Value)
		}
		classes = append(classes, "cors")
	}
	return classes
}

// GrantPermission answers a permission request raised by any context.
// With auto_grant_permissions every request is granted regardless of origin;
// otherwise the engine declines and the host applies its default.
func (e *Engine) GrantPermission(permission string) bool {
	granted := e.policy.AutoGrantPermissions
	if granted {
		e.metrics.RecordPermission("granted")
	} else {
		e.metrics.RecordPermission("deferred")
	}
	e.logger.Debug("Permission request",
		zap.String("permission", permission), zap.Bool("granted", granted))
	return granted
}

// CheckPermission answers a permission capability check such as a
// Permissions API query. It follows the same session-wide rule as
// GrantPermission.
func (e *Engine) CheckPermission(permission string) bool {
	granted := e.policy.AutoGrantPermissions
	if granted {
		e.metrics.RecordPermission("check_granted")
	} else {
		e.metrics.RecordPermission("check_deferred")
	}
	e.logger.Debug("Permission check",
		zap.String("permission", permission), zap.Bool("granted", granted))
	return granted
}
