package chrome

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/bypass"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Options configures the Chrome process
type Options struct {
	ExecPath string
	Headless bool
	StartURL string
}

// Host runs Chrome through the DevTools protocol and plays the role of the
// view lifecycle manager: it reports navigation to a Listener, answers
// readiness queries and executes injection batches.
type Host struct {
	opts     Options
	engine   *bypass.Engine
	listener navigation.Listener
	logger   *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	first *tab

	mu   sync.RWMutex
	tabs map[types.ContextID]*tab
}

// Launch starts Chrome with the engine's process switches, applies the
// session-wide policy and attaches the first tab. Start loads opts.StartURL.
func Launch(ctx context.Context, opts Options, engine *bypass.Engine, listener navigation.Listener, logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		opts:     opts,
		engine:   engine,
		listener: listener,
		logger:   logger.Named("chrome"),
		tabs:     make(map[types.ContextID]*tab),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(opts, engine.Switches())...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	h.allocCancel = allocCancel
	h.browserCtx = browserCtx
	h.browserCancel = browserCancel

	// The first Run starts the browser and its initial blank tab
	if err := chromedp.Run(browserCtx); err != nil {
		h.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	h.logger.Info("Chrome started",
		zap.Bool("headless", opts.Headless),
		zap.Strings("switches", switchStrings(engine.Switches())))

	chromedp.ListenBrowser(browserCtx, h.onBrowserEvent)
	browserExec := cdp.WithExecutor(browserCtx, chromedp.FromContext(browserCtx).Browser)
	if err := target.SetDiscoverTargets(true).Do(browserExec); err != nil {
		h.logger.Warn("Target discovery unavailable, popups will not be tracked", zap.Error(err))
	}
	h.grantPermissions(browserExec)

	first, err := h.attach(browserCtx, func() {}, "")
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("attach first tab: %w", err)
	}
	h.first = first
	return h, nil
}

// Start loads the start URL in the first tab. Call it once the host can
// answer the listener's readiness and execution calls.
func (h *Host) Start() {
	if h.opts.StartURL != "" {
		go h.navigate(h.first, h.opts.StartURL)
	}
}

// Close shuts Chrome down
func (h *Host) Close() {
	if h.browserCancel != nil {
		h.browserCancel()
	}
	if h.allocCancel != nil {
		h.allocCancel()
	}
}

// Done is closed when the browser exits or is closed
func (h *Host) Done() <-chan struct{} {
	return h.browserCtx.Done()
}

// OpenTab creates a tab and starts loading url in it
func (h *Host) OpenTab(ctx context.Context, url string) (types.ContextID, error) {
	tctx, cancel := chromedp.NewContext(h.browserCtx)
	t, err := h.attach(tctx, cancel, "")
	if err != nil {
		cancel()
		return "", fmt.Errorf("open tab: %w", err)
	}
	go h.navigate(t, url)
	return t.id, nil
}

// CloseTab closes the tab id
func (h *Host) CloseTab(id types.ContextID) error {
	t, ok := h.tab(id)
	if !ok {
		return navigation.ErrContextGone
	}
	if err := chromedp.Cancel(t.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close tab %s: %w", id, err)
	}
	h.detach(id)
	return nil
}

// Tabs returns a snapshot of the open tabs ordered by id
func (h *Host) Tabs() []types.NavigableContext {
	h.mu.RLock()
	out := make([]types.NavigableContext, 0, len(h.tabs))
	for _, t := range h.tabs {
		out = append(out, t.snapshot())
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Readiness implements navigation.Views
func (h *Host) Readiness(id types.ContextID) (types.Readiness, error) {
	t, ok := h.tab(id)
	if !ok {
		return types.ReadinessLoading, navigation.ErrContextGone
	}
	return t.getReadiness(), nil
}

func (h *Host) tab(id types.ContextID) (*tab, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tabs[id]
	return t, ok
}

// detach forgets id and tells the listener. Safe to call more than once.
func (h *Host) detach(id types.ContextID) {
	h.mu.Lock()
	t, ok := h.tabs[id]
	delete(h.tabs, id)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.logger.Debug("Tab detached", zap.String("context_id", string(id)))
	h.listener.OnDestroyed(id)
	// Cancelling waits for the target to close; never do it on the event goroutine
	go t.cancel()
}

func (h *Host) onBrowserEvent(ev interface{}) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		info := e.TargetInfo
		if info == nil || info.Type != "page" || info.OpenerID == "" {
			return
		}
		go h.adopt(info.TargetID, types.ContextID(info.OpenerID))
	case *target.EventTargetDestroyed:
		h.detach(types.ContextID(e.TargetID))
	}
}

// adopt attaches to a page opened by another page (window.open, target=_blank)
func (h *Host) adopt(id target.ID, opener types.ContextID) {
	if _, ok := h.tab(types.ContextID(id)); ok {
		return
	}
	tctx, cancel := chromedp.NewContext(h.browserCtx, chromedp.WithTargetID(id))
	if _, err := h.attach(tctx, cancel, opener); err != nil {
		cancel()
		h.logger.Debug("Could not attach to popup", zap.String("target_id", string(id)), zap.Error(err))
	}
}

func allocatorOptions(opts Options, switches []bypass.Switch) []chromedp.ExecAllocatorOption {
	out := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-infobars", true),
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Headless {
		out = append(out, chromedp.Headless)
	} else {
		out = append(out, chromedp.Flag("headless", false))
	}
	for _, s := range switches {
		out = append(out, chromedp.Flag(s.Name, flagValue(s)))
	}
	return out
}

func flagValue(s bypass.Switch) interface{} {
	if s.Value == "" {
		return true
	}
	return s.Value
}

func switchStrings(switches []bypass.Switch) []string {
	out := make([]string, len(switches))
	for i, s := range switches {
		out[i] = s.String()
	}
	return out
}
