package navigation

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/injection"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/shared/id"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

const defaultQueueSize = 256

// Hub observes navigation across all contexts and drives injection.
//
// A single goroutine (Run) owns every piece of per-context state, including
// the scheduler. Listener methods, match queries and delivery workers only
// talk to it through channels.
type Hub struct {
	views     Views
	sink      Sink
	matcher   Matcher
	scheduler *injection.Scheduler
	reporters []Reporter
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	events   chan Event
	results  chan matchResult
	outcomes chan outcome
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// loop-owned
	contexts map[types.ContextID]*tracked
	open     atomic.Int64
}

// tracked is the hub's view of one live context
type tracked struct {
	generation uint64
	navID      string
	url        string
	ctx        context.Context
	cancel     context.CancelFunc
	worker     *worker
}

type matchResult struct {
	event      Event
	navID      string
	generation uint64
	scripts    []injection.Script
}

type outcome struct {
	batch injection.Batch
	err   error
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithLogger sets the hub logger
func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger.Named("hub")
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *monitoring.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = metrics
	}
}

// WithReporter adds a delivery reporter
func WithReporter(r Reporter) HubOption {
	return func(h *Hub) {
		if r != nil {
			h.reporters = append(h.reporters, r)
		}
	}
}

// WithQueueSize sets the event buffer size
func WithQueueSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.events = make(chan Event, n)
		}
	}
}

// NewHub wires the pipeline together. Run must be called to process events.
func NewHub(views Views, sink Sink, m Matcher, scheduler *injection.Scheduler, opts ...HubOption) *Hub {
	h := &Hub{
		views:     views,
		sink:      sink,
		matcher:   m,
		scheduler: scheduler,
		logger:    zap.NewNop(),
		events:    make(chan Event, defaultQueueSize),
		results:   make(chan matchResult),
		outcomes:  make(chan outcome),
		done:      make(chan struct{}),
		contexts:  make(map[types.ContextID]*tracked),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnNavigate reports a new top-level document in id
func (h *Hub) OnNavigate(id types.ContextID, url string) {
	h.Dispatch(Event{Kind: EventNavigate, Context: id, URL: url})
}

// OnInPageNavigate reports a history-API navigation in id
func (h *Hub) OnInPageNavigate(id types.ContextID, url string) {
	h.Dispatch(Event{Kind: EventInPage, Context: id, URL: url})
}

// OnSubframeNavigate reports a navigation of a child frame of id
func (h *Hub) OnSubframeNavigate(id types.ContextID, frame types.FrameID, url string) {
	h.Dispatch(Event{Kind: EventSubframe, Context: id, Frame: frame, URL: url})
}

// OnReadinessChange reports a document readiness change in id
func (h *Hub) OnReadinessChange(id types.ContextID, readiness types.Readiness) {
	h.Dispatch(Event{Kind: EventReadiness, Context: id, Readiness: readiness})
}

// OnDestroyed reports that id was torn down
func (h *Hub) OnDestroyed(id types.ContextID) {
	h.Dispatch(Event{Kind: EventDestroyed, Context: id})
}

// Dispatch enqueues ev for the loop. Events sent after Run returned are dropped.
func (h *Hub) Dispatch(ev Event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// Contexts returns the number of live contexts. Safe from any goroutine.
func (h *Hub) Contexts() int {
	return int(h.open.Load())
}

// Run processes events until ctx is cancelled. Outstanding match queries and
// deliveries are cancelled and awaited before it returns.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("Navigation hub started")
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Navigation hub stopping")
			return nil
		case ev := <-h.events:
			h.handle(ctx, ev)
		case res := <-h.results:
			h.apply(res)
		case out := <-h.outcomes:
			h.settle(out)
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	for id, t := range h.contexts {
		t.cancel()
		delete(h.contexts, id)
	}
	h.open.Store(0)
	h.wg.Wait()
}

func (h *Hub) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventNavigate:
		t := h.track(ctx, ev.Context)
		// The old document is gone before any match for the new one returns
		t.generation++
		t.navID = id.NewNavID()
		t.url = ev.URL
		h.scheduler.Reset(ev.Context)
		h.query(t, ev)

	case EventInPage, EventSubframe:
		t := h.track(ctx, ev.Context)
		if ev.Kind == EventInPage {
			t.url = ev.URL
		}
		h.query(t, ev)

	case EventReadiness:
		t, ok := h.contexts[ev.Context]
		if !ok || !h.scheduler.Known(ev.Context) {
			return
		}
		h.deliver(t, h.scheduler.Advance(ev.Context, ev.Readiness))

	case EventDestroyed:
		t, ok := h.contexts[ev.Context]
		if !ok {
			return
		}
		t.cancel()
		delete(h.contexts, ev.Context)
		h.open.Store(int64(len(h.contexts)))
		h.scheduler.Forget(ev.Context)
		h.logger.Debug("Context destroyed", zap.String("context_id", string(ev.Context)))

	default:
		h.logger.Warn("Unknown event", zap.String("event", string(ev.Kind)))
	}
}

func (h *Hub) track(ctx context.Context, id types.ContextID) *tracked {
	if t, ok := h.contexts[id]; ok {
		return t
	}
	tctx, cancel := context.WithCancel(ctx)
	t := &tracked{ctx: tctx, cancel: cancel}
	t.worker = h.startWorker(tctx)
	h.contexts[id] = t
	h.open.Store(int64(len(h.contexts)))
	return t
}

// query issues the match call off-loop and hands the result back
func (h *Hub) query(t *tracked, ev Event) {
	if !Injectable(ev.URL) {
		h.logger.Debug("Skipping non-web URL",
			zap.String("context_id", string(ev.Context)), zap.String("url", ev.URL))
		return
	}

	res := matchResult{event: ev, navID: t.navID, generation: t.generation}
	mctx := t.ctx

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res.scripts = h.matcher.Match(mctx, ev.URL).Scripts
		select {
		case h.results <- res:
		case <-h.done:
		}
	}()
}

func (h *Hub) apply(res matchResult) {
	id := res.event.Context
	logger := h.logger.With(
		zap.String("context_id", string(id)),
		zap.String("nav_id", res.navID),
		zap.String("url", res.event.URL),
	)

	t, ok := h.contexts[id]
	if !ok {
		logger.Debug("Discarding match for destroyed context")
		return
	}
	if t.generation != res.generation {
		logger.Debug("Discarding match for replaced document")
		return
	}
	if len(res.scripts) == 0 {
		return
	}

	readiness, err := h.views.Readiness(id)
	switch {
	case errors.Is(err, ErrContextGone):
		logger.Debug("Context gone before scheduling")
		return
	case err != nil:
		readiness = h.scheduler.Readiness(id)
		logger.Debug("Readiness unavailable, using last known",
			zap.String("readiness", string(readiness)), zap.Error(err))
	}

	batches := h.scheduler.Schedule(injection.Request{
		Context:   id,
		Frame:     res.event.Frame,
		NavID:     res.navID,
		URL:       res.event.URL,
		Readiness: readiness,
		Scripts:   res.scripts,
	})
	logger.Debug("Scripts scheduled",
		zap.Int("scripts", len(res.scripts)), zap.Int("batches", len(batches)))
	h.deliver(t, batches)
}

func (h *Hub) deliver(t *tracked, batches []injection.Batch) {
	for _, b := range batches {
		if err := b.Validate(); err != nil {
			h.logger.Error("Dropping invalid batch",
				zap.String("context_id", string(b.Context)), zap.Error(err))
			h.scheduler.Abandon(b)
			h.finish(OutcomeInvalid, b, err)
			continue
		}
		t.worker.push(b)
	}
}

func (h *Hub) settle(out outcome) {
	b := out.batch
	logger := h.logger.With(
		zap.String("context_id", string(b.Context)),
		zap.String("nav_id", b.NavID),
		zap.Strings("scripts", b.URLs()),
	)

	switch {
	case out.err == nil:
		h.scheduler.MarkDelivered(b)
		logger.Debug("Batch delivered")
		h.finish(OutcomeDelivered, b, nil)

	case errors.Is(out.err, ErrContextGone), errors.Is(out.err, context.Canceled):
		h.scheduler.Abandon(b)
		h.finish(OutcomeAbandoned, b, nil)

	default:
		h.scheduler.Abandon(b)
		if b.SubFrame() {
			logger.Debug("Sub-frame delivery failed", zap.String("frame_id", string(b.Frame)), zap.Error(out.err))
		} else {
			logger.Warn("Batch delivery failed", zap.Error(out.err))
		}
		h.finish(OutcomeFailed, b, out.err)
	}
}

func (h *Hub) finish(kind Outcome, b injection.Batch, err error) {
	h.metrics.RecordBatch(string(kind))
	if len(h.reporters) == 0 {
		return
	}
	d := newDelivery(kind, b, err)
	for _, r := range h.reporters {
		r.Report(d)
	}
}

// Injectable reports whether rawURL may be matched. Only http and https
// pages qualify; devtools, file and other internal schemes never do.
func Injectable(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
