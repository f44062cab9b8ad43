package queue

import (
	"context"
	"errors"
	"sync"
)

var ErrTornDown = errors.New("queue: itinerary session torn down")

// Op is one unit of work against an itinerary's schedule. It runs on that
// itinerary's worker goroutine, never on the caller's.
type Op func(ctx context.Context) (any, error)

// Result is delivered on the channel returned by Submit.
type Result struct {
	Value any
	Err   error
}

type submission struct {
	ctx context.Context
	op  Op
	out chan Result
}

type worker struct {
	mu      sync.Mutex
	pending []submission
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	onExit  func()
}

// Manager runs one worker per active itinerary. Operations submitted for
// the same itinerary execute strictly in submission order; different
// itineraries proceed independently.
type Manager struct {
	mu      sync.Mutex
	workers map[string]*worker
}

func NewManager() *Manager {
	return &Manager{workers: make(map[string]*worker)}
}

// Submit queues op on the itinerary's worker and returns a channel that
// receives exactly one Result. The channel is buffered, so a caller that
// walked away does not block the worker.
func (m *Manager) Submit(ctx context.Context, itineraryID string, op Op) (<-chan Result, error) {
	m.mu.Lock()
	w, ok := m.workers[itineraryID]
	if !ok {
		w = &worker{
			wake: make(chan struct{}, 1),
			done: make(chan struct{}),
		}
		w.onExit = func() {
			m.mu.Lock()
			if m.workers[itineraryID] == w {
				delete(m.workers, itineraryID)
			}
			m.mu.Unlock()
		}
		m.workers[itineraryID] = w
		go w.run()
	}
	m.mu.Unlock()

	out := make(chan Result, 1)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrTornDown
	}
	w.pending = append(w.pending, submission{ctx: ctx, op: op, out: out})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return out, nil
}

func (w *worker) run() {
	defer close(w.done)
	if w.onExit != nil {
		defer w.onExit()
	}
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			if w.closed {
				w.mu.Unlock()
				return
			}
			w.mu.Unlock()
			<-w.wake
			continue
		}
		sub := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		value, err := sub.op(sub.ctx)
		sub.out <- Result{Value: value, Err: err}
	}
}

// Teardown closes the itinerary's session. Operations already submitted
// run to completion; submissions arriving while the drain runs get
// ErrTornDown. Once drained the worker removes itself, so a later Submit
// opens a fresh session. Teardown does not wait for the drain.
func (m *Manager) Teardown(itineraryID string) {
	m.mu.Lock()
	w, ok := m.workers[itineraryID]
	m.mu.Unlock()
	if !ok {
		return
	}

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close tears down every active session and waits for their pending work
// to finish. Used on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	workers := make([]*worker, 0, len(m.workers))
	for id, w := range m.workers {
		workers = append(workers, w)
		delete(m.workers, id)
	}
	m.mu.Unlock()

	for _, w := range workers {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
	for _, w := range workers {
		<-w.done
	}
}
