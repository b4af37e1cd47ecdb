package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes login events to a fixed set of workers using consistent
// hashing on the user ID, so updates for one user are applied in order.
type Dispatcher struct {
	workers []chan domain.LoginEvent
	service ports.LoginEventService
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.LoginEventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LoginEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoginEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Cancelling ctx does not stop them;
// call Stop to drain the queues and shut down.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop rejects new events, lets every worker finish what is already buffered
// and blocks until they have returned. It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Enqueue hands event to the worker responsible for its user. It never blocks
// the caller: when the worker's buffer is full, or the dispatcher is stopped,
// the event is dropped and logged.
func (d *Dispatcher) Enqueue(event domain.LoginEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn().Str("user_id", event.UserID).Msg("login queue stopped, event dropped")
		return
	}

	select {
	case d.workers[d.shardIndex(event.UserID)] <- event:
	default:
		d.log.Warn().Str("user_id", event.UserID).Msg("login queue full, event dropped")
	}
}

// shardIndex maps a user ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LoginEvent) {
	defer d.wg.Done()
	for event := range ch {
		if err := d.service.Process(ctx, event); err != nil {
			d.log.Error().Err(err).
				Str("user_id", event.UserID).
				Int("worker_id", id).
				Msg("login event processing failed")
		}
	}
}
