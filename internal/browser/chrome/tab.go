package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// tab is one attached page target
type tab struct {
	id     types.ContextID
	opener types.ContextID
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	url       string
	mainFrame cdp.FrameID
	readiness types.Readiness
}

func (t *tab) getReadiness() types.Readiness {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readiness
}

func (t *tab) snapshot() types.NavigableContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	nc := types.NavigableContext{ID: t.id, URL: t.url, Readiness: t.readiness}
	if t.opener != "" {
		opener := t.opener
		nc.ParentID = &opener
	}
	return nc
}

// attach registers a tab for tctx, subscribes to its events and enables the
// protocol domains the bypass policy needs. opener is empty for top-level tabs.
func (h *Host) attach(tctx context.Context, cancel context.CancelFunc, opener types.ContextID) (*tab, error) {
	// Creates the target if tctx does not have one yet
	if err := chromedp.Run(tctx); err != nil {
		return nil, err
	}
	c := chromedp.FromContext(tctx)
	if c == nil || c.Target == nil {
		return nil, errors.New("no target attached")
	}

	t := &tab{
		id:        types.ContextID(c.Target.TargetID),
		opener:    opener,
		ctx:       tctx,
		cancel:    cancel,
		readiness: types.ReadinessLoading,
	}
	h.mu.Lock()
	h.tabs[t.id] = t
	h.mu.Unlock()

	chromedp.ListenTarget(tctx, func(ev interface{}) { h.onTargetEvent(t, ev) })

	err := chromedp.Run(tctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable page domain: %w", err)
		}
		return h.enableBypass(ctx)
	}))
	if err != nil {
		h.mu.Lock()
		delete(h.tabs, t.id)
		h.mu.Unlock()
		return nil, err
	}

	h.logger.Debug("Tab attached", zap.String("context_id", string(t.id)))
	return t, nil
}

func (h *Host) navigate(t *tab, url string) {
	if err := chromedp.Run(t.ctx, chromedp.Navigate(url)); err != nil && t.ctx.Err() == nil {
		h.logger.Warn("Navigation failed",
			zap.String("context_id", string(t.id)),
			zap.String("url", url),
			zap.Error(err))
	}
}

// onTargetEvent runs on the chromedp event goroutine. It must not block on
// protocol calls; response interception is handed to its own goroutine.
func (h *Host) onTargetEvent(t *tab, ev interface{}) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil {
			return
		}
		if e.Frame.ParentID != "" {
			h.listener.OnSubframeNavigate(t.id, types.FrameID(e.Frame.ID), e.Frame.URL)
			return
		}
		t.mu.Lock()
		t.mainFrame = e.Frame.ID
		t.url = e.Frame.URL
		t.readiness = types.ReadinessLoading
		t.mu.Unlock()
		h.listener.OnNavigate(t.id, e.Frame.URL)

	case *page.EventNavigatedWithinDocument:
		t.mu.Lock()
		main := e.FrameID == t.mainFrame
		if main {
			t.url = e.URL
		}
		t.mu.Unlock()
		if main {
			h.listener.OnInPageNavigate(t.id, e.URL)
		}

	case *page.EventDomContentEventFired:
		h.setReadiness(t, types.ReadinessInteractive)

	case *page.EventLoadEventFired:
		h.setReadiness(t, types.ReadinessComplete)

	case *inspector.EventDetached, *inspector.EventTargetCrashed:
		h.detach(t.id)

	default:
		h.intercept(t, ev)
	}
}

func (h *Host) setReadiness(t *tab, r types.Readiness) {
	t.mu.Lock()
	if t.readiness.AtLeast(r) {
		t.mu.Unlock()
		return
	}
	t.readiness = r
	t.mu.Unlock()
	h.listener.OnReadinessChange(t.id, r)
}

// ExecuteInContext implements navigation.Sink. The code runs in the tab's
// top-level document; sub-frame batches land there too.
func (h *Host) ExecuteInContext(ctx context.Context, id types.ContextID, code string) error {
	t, ok := h.tab(id)
	if !ok {
		return navigation.ErrContextGone
	}

	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exception, err := runtime.Evaluate(code).Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return fmt.Errorf("script exception: %s", describeException(exception))
		}
		return nil
	}))
	switch {
	case err == nil:
		return nil
	case t.ctx.Err() != nil:
		return navigation.ErrContextGone
	case ctx.Err() != nil:
		return ctx.Err()
	}
	if _, ok := h.tab(id); !ok {
		return navigation.ErrContextGone
	}
	return err
}

func describeException(e *runtime.ExceptionDetails) string {
	parts := []string{e.Text}
	if e.Exception != nil && e.Exception.Description != "" {
		parts = append(parts, e.Exception.Description)
	}
	return strings.Join(parts, ": ")
}
