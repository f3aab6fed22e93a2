package inventory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/upload"
)

// releaseTimeout bounds a single release call.
const releaseTimeout = 30 * time.Second

// Releaser deletes unreferenced uploads in the background. Callers enqueue
// references after their transaction has committed and never wait for or
// see the outcome; failures are logged and counted.
type Releaser struct {
	uploads upload.Store
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	queue  chan string
	wg     sync.WaitGroup
}

// NewReleaser starts a worker draining a queue of the given size.
func NewReleaser(uploads upload.Store, m *metrics.Metrics, size int) *Releaser {
	if size < 1 {
		size = 64
	}
	r := &Releaser{uploads: uploads, metrics: m, queue: make(chan string, size)}
	r.wg.Add(1)
	go r.run()
	return r
}

// Release queues refs for deletion. Empty refs are skipped. When the queue
// is full the release runs in its own goroutine rather than blocking the
// caller. After Close, refs are logged and dropped.
func (r *Releaser) Release(refs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if r.closed {
			slog.Warn("upload release after shutdown skipped", "ref", ref)
			continue
		}
		select {
		case r.queue <- ref:
		default:
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.release(ref)
			}()
		}
	}
}

// Close stops accepting work and waits for queued releases to finish.
func (r *Releaser) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Releaser) run() {
	defer r.wg.Done()
	for ref := range r.queue {
		r.release(ref)
	}
}

func (r *Releaser) release(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	err := r.uploads.Release(ctx, ref)
	switch {
	case err == nil:
		slog.Debug("released upload", "ref", ref)
	case errors.Is(err, upload.ErrNotFound):
		slog.Debug("upload already gone", "ref", ref)
	default:
		slog.Warn("releasing upload", "ref", ref, "error", err)
		if r.metrics != nil {
			r.metrics.ReleaseFailures.Inc()
		}
	}
}
