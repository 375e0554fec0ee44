package sandbox

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Headless is a browser host without a browser. It keeps one goja page per
// context and serves as both the Views and the Sink of a navigation hub.
type Headless struct {
	config Config
	logger *zap.Logger

	mu    sync.RWMutex
	pages map[types.ContextID]*Page
}

// New creates an empty headless host
func New(config Config, logger *zap.Logger) *Headless {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Headless{
		config: config,
		logger: logger.Named("sandbox"),
		pages:  make(map[types.ContextID]*Page),
	}
}

// Navigate replaces the document of id with a fresh page for url
func (h *Headless) Navigate(id types.ContextID, url string) {
	h.mu.Lock()
	h.pages[id] = newPage(id, url, h.config)
	h.mu.Unlock()
}

// NavigateInPage changes the URL of id without replacing its document
func (h *Headless) NavigateInPage(id types.ContextID, url string) {
	if p, ok := h.Page(id); ok {
		p.setURL(url)
	}
}

// SetReadiness updates the document state of id
func (h *Headless) SetReadiness(id types.ContextID, r types.Readiness) {
	if p, ok := h.Page(id); ok {
		p.setReadiness(r)
	}
}

// Close removes id
func (h *Headless) Close(id types.ContextID) {
	h.mu.Lock()
	delete(h.pages, id)
	h.mu.Unlock()
}

// Page returns the current page of id
func (h *Headless) Page(id types.ContextID) (*Page, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.pages[id]
	return p, ok
}

// Readiness implements navigation.Views
func (h *Headless) Readiness(id types.ContextID) (types.Readiness, error) {
	p, ok := h.Page(id)
	if !ok {
		return types.ReadinessLoading, navigation.ErrContextGone
	}
	return p.getReadiness(), nil
}

// ExecuteInContext implements navigation.Sink
func (h *Headless) ExecuteInContext(ctx context.Context, id types.ContextID, code string) error {
	p, ok := h.Page(id)
	if !ok {
		return navigation.ErrContextGone
	}
	if err := p.Execute(ctx, code); err != nil {
		h.logger.Debug("Script execution failed", zap.String("context_id", string(id)), zap.Error(err))
		return err
	}
	return nil
}

// Apply mirrors a host event onto the simulated pages. Replay calls it before
// forwarding the same event to the hub.
func (h *Headless) Apply(ev navigation.Event) {
	switch ev.Kind {
	case navigation.EventNavigate:
		h.Navigate(ev.Context, ev.URL)
	case navigation.EventInPage:
		h.NavigateInPage(ev.Context, ev.URL)
	case navigation.EventReadiness:
		h.SetReadiness(ev.Context, ev.Readiness)
	case navigation.EventDestroyed:
		h.Close(ev.Context)
	}
}

// Summary returns every open page ordered by context id
func (h *Headless) Summary() []PageSummary {
	h.mu.RLock()
	pages := make([]*Page, 0, len(h.pages))
	for _, p := range h.pages {
		pages = append(pages, p)
	}
	h.mu.RUnlock()

	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
