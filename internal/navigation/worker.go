package navigation

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/injection"
)

// worker executes the batches of one context strictly in order
type worker struct {
	mu      sync.Mutex
	pending []injection.Batch
	signal  chan struct{}
}

func (h *Hub) startWorker(ctx context.Context) *worker {
	w := &worker{signal: make(chan struct{}, 1)}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		w.run(ctx, h)
	}()
	return w
}

// push never blocks the hub loop
func (w *worker) push(b injection.Batch) {
	w.mu.Lock()
	w.pending = append(w.pending, b)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *worker) take() []injection.Batch {
	w.mu.Lock()
	defer w.mu.Unlock()
	batches := w.pending
	w.pending = nil
	return batches
}

func (w *worker) run(ctx context.Context, h *Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
		}

		for _, b := range w.take() {
			err := ctx.Err()
			if err == nil {
				err = h.sink.ExecuteInContext(ctx, b.Context, b.Code())
			}
			select {
			case h.outcomes <- outcome{batch: b, err: err}:
			case <-h.done:
				return
			}
		}
	}
}
