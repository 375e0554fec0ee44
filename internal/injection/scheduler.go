package injection

import (
	"net"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Config locates the matcher origin that relative script URLs resolve against
type Config struct {
	Host string
	Port int
}

// Origin returns the base URL for relative script sources
func (c Config) Origin() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Scheduler decides when scripts run in each context and guarantees that a
// resolved script URL runs at most once per top-level document.
//
// Scheduler is not safe for concurrent use. The navigation hub owns it and
// calls it from its event loop only.
type Scheduler struct {
	cfg      Config
	contexts map[types.ContextID]*document
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// document is the delivery bookkeeping for the current document of a context
type document struct {
	readiness  types.Readiness
	generation uint64
	records    map[string]DeliveryState
	queue      []queued
}

type queued struct {
	entry Entry
	frame types.FrameID
	navID string
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the scheduler logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger.Named("scheduler")
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// NewScheduler creates a scheduler resolving relative sources against cfg
func NewScheduler(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		contexts: make(map[types.ContextID]*document),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve turns a matcher-provided source into the URL the page will load.
// Absolute and protocol-relative sources are kept; anything else is a path
// on the matcher origin.
func (s *Scheduler) Resolve(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "http") || strings.HasPrefix(src, "//") {
		return src
	}
	return s.cfg.Origin() + "/" + strings.TrimLeft(src, "/")
}

// Schedule registers the scripts of one navigation event. Scripts already
// recorded for the current document are skipped. Scripts whose phase the
// context has already reached come back as at most one batch; the rest wait
// for Advance.
func (s *Scheduler) Schedule(req Request) []Batch {
	if len(req.Scripts) == 0 {
		return nil
	}

	doc := s.document(req.Context)
	if req.Readiness.Valid() {
		doc.readiness = req.Readiness
	}

	var ready []Entry
	pending := 0
	for _, script := range req.Scripts {
		src := s.Resolve(script.URL)
		if src == "" {
			continue
		}
		if _, seen := doc.records[src]; seen {
			s.metrics.RecordScripts(string(StateSkipped), 1)
			s.logger.Debug("Script already recorded, skipping",
				zap.String("context_id", string(req.Context)),
				zap.String("src", src))
			continue
		}

		entry := Entry{Src: src, Phase: script.Phase, Config: script.Config}
		if doc.readiness.AtLeast(script.Phase.Requires()) {
			doc.records[src] = StateScheduled
			ready = append(ready, entry)
			continue
		}
		doc.records[src] = StatePending
		pending++
		doc.queue = append(doc.queue, queued{entry: entry, frame: req.Frame, navID: req.NavID})
	}

	s.metrics.RecordScripts(string(StateScheduled), len(ready))
	s.metrics.RecordScripts(string(StatePending), pending)
	if len(ready) == 0 {
		return nil
	}
	return []Batch{s.batch(req.Context, doc, req.Frame, req.NavID, ready)}
}

// Advance records a readiness change and releases every queued script whose
// phase is now satisfied. Released scripts are grouped into one batch per
// originating frame, top-level first.
func (s *Scheduler) Advance(id types.ContextID, readiness types.Readiness) []Batch {
	doc, ok := s.contexts[id]
	if !ok || !readiness.Valid() {
		return nil
	}
	doc.readiness = readiness

	var (
		order  []types.FrameID
		groups = make(map[types.FrameID][]Entry)
		navIDs = make(map[types.FrameID]string)
		rest   = doc.queue[:0]
	)
	for _, q := range doc.queue {
		if !readiness.AtLeast(q.entry.Phase.Requires()) {
			rest = append(rest, q)
			continue
		}
		if _, seen := groups[q.frame]; !seen {
			order = append(order, q.frame)
			navIDs[q.frame] = q.navID
		}
		groups[q.frame] = append(groups[q.frame], q.entry)
		doc.records[q.entry.Src] = StateScheduled
	}
	doc.queue = rest

	sort.SliceStable(order, func(i, j int) bool { return order[i] == "" && order[j] != "" })

	batches := make([]Batch, 0, len(order))
	for _, frame := range order {
		entries := groups[frame]
		s.metrics.RecordScripts(string(StateScheduled), len(entries))
		batches = append(batches, s.batch(id, doc, frame, navIDs[frame], entries))
	}
	return batches
}

// Reset starts a new document for id: delivery history and queued scripts are
// dropped and readiness returns to loading.
func (s *Scheduler) Reset(id types.ContextID) {
	doc := s.document(id)
	if n := len(doc.queue); n > 0 {
		s.logger.Debug("Dropping queued scripts for replaced document",
			zap.String("context_id", string(id)), zap.Int("count", n))
	}
	doc.generation++
	doc.readiness = types.ReadinessLoading
	doc.records = make(map[string]DeliveryState)
	doc.queue = nil
}

// Forget drops all state for a torn-down context
func (s *Scheduler) Forget(id types.ContextID) {
	delete(s.contexts, id)
	s.metrics.SetContexts(len(s.contexts))
}

// Known reports whether the scheduler tracks id
func (s *Scheduler) Known(id types.ContextID) bool {
	_, ok := s.contexts[id]
	return ok
}

// Generation returns the document generation of id
func (s *Scheduler) Generation(id types.ContextID) uint64 {
	if doc, ok := s.contexts[id]; ok {
		return doc.generation
	}
	return 0
}

// Readiness returns the last readiness recorded for id
func (s *Scheduler) Readiness(id types.ContextID) types.Readiness {
	if doc, ok := s.contexts[id]; ok {
		return doc.readiness
	}
	return types.ReadinessLoading
}

// MarkDelivered records that the sink executed b
func (s *Scheduler) MarkDelivered(b Batch) {
	s.settle(b, StateDelivered)
}

// Abandon records that b will never run. Its scripts are not retried.
func (s *Scheduler) Abandon(b Batch) {
	s.settle(b, StateAbandoned)
}

// Records returns a copy of the delivery records of id keyed by resolved URL
func (s *Scheduler) Records(id types.ContextID) map[string]DeliveryState {
	doc, ok := s.contexts[id]
	if !ok {
		return nil
	}
	out := make(map[string]DeliveryState, len(doc.records))
	for src, state := range doc.records {
		out[src] = state
	}
	return out
}

// Queued returns the number of scripts waiting for readiness in id
func (s *Scheduler) Queued(id types.ContextID) int {
	if doc, ok := s.contexts[id]; ok {
		return len(doc.queue)
	}
	return 0
}

func (s *Scheduler) settle(b Batch, state DeliveryState) {
	doc, ok := s.contexts[b.Context]
	if !ok || doc.generation != b.Generation {
		return
	}
	for _, e := range b.Entries {
		if doc.records[e.Src] == StateScheduled {
			doc.records[e.Src] = state
		}
	}
	s.metrics.RecordScripts(string(state), len(b.Entries))
}

func (s *Scheduler) document(id types.ContextID) *document {
	doc, ok := s.contexts[id]
	if !ok {
		doc = &document{
			readiness: types.ReadinessLoading,
			records:   make(map[string]DeliveryState),
		}
		s.contexts[id] = doc
		s.metrics.SetContexts(len(s.contexts))
	}
	return doc
}

func (s *Scheduler) batch(id types.ContextID, doc *document, frame types.FrameID, navID string, entries []Entry) Batch {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Phase.order() < entries[j].Phase.order()
	})
	return Batch{
		Context:    id,
		Frame:      frame,
		NavID:      navID,
		Generation: doc.generation,
		Host:       s.cfg.Host,
		Port:       s.cfg.Port,
		Entries:    entries,
	}
}
