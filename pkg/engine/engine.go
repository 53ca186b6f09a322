// Package engine runs the escape-time computation of a storage's grid in the
// background.
package engine

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/logging"
	"github.com/willbeason/deepzoom/pkg/storage"
	"github.com/willbeason/deepzoom/pkg/transforms"
)

// State is the lifecycle of an Engine.
//
// PreStart -> Running -> Finished | Aborted. A finished or aborted engine may
// be started again.
type State int

const (
	PreStart State = iota
	Running
	// Finished means the fill algorithm ran to its end, which for Shuffled
	// includes being stopped. Check the grid state to tell the difference.
	Finished
	Aborted
)

func (s State) String() string {
	switch s {
	case PreStart:
		return "prestart"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Algorithm selects the order in which cells are computed.
type Algorithm int

const (
	// Shuffled computes in parallel, coarse grid lines first.
	Shuffled Algorithm = iota
	// Linear computes row by row on a single goroutine.
	Linear
)

func (a Algorithm) String() string {
	switch a {
	case Shuffled:
		return "shuffled"
	case Linear:
		return "linear"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm accepts the names returned by Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "", "shuffled":
		return Shuffled, nil
	case "linear":
		return Linear, nil
	}
	return Shuffled, fmt.Errorf("unknown algorithm %q", s)
}

// Token is a cancellation flag shared by an engine and its worker.
type Token struct {
	flag atomic.Bool
}

func (t *Token) Cancel() {
	t.flag.Store(true)
}

func (t *Token) Cancelled() bool {
	return t.flag.Load()
}

// Engine fills the grid of one storage.
type Engine struct {
	storage   *storage.Storage
	algorithm Algorithm
	workers   int
	escaper   transforms.Escaper

	mu    sync.Mutex
	state State
	token *Token
	done  chan struct{}
}

type Option func(*Engine)

func WithAlgorithm(a Algorithm) Option {
	return func(e *Engine) { e.algorithm = a }
}

// WithWorkers sets the parallelism of the Shuffled algorithm. Non-positive
// values select runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithEscaper(esc transforms.Escaper) Option {
	return func(e *Engine) { e.escaper = esc }
}

// New returns an engine for s. By default it computes the Mandelbrot set
// with the Shuffled algorithm on every CPU.
func New(s *storage.Storage, opts ...Option) *Engine {
	e := &Engine{
		storage: s,
		workers: runtime.NumCPU(),
		escaper: transforms.Mandelbrot{},
		state:   PreStart,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Storage() *storage.Storage {
	return e.storage
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start launches the worker. It does nothing while the engine is running.
//
// Unless the grid is Completed, it is Evolving when Start returns, so a
// consumer connecting afterwards follows the run.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Running {
		return
	}
	e.state = Running

	if g := e.storage.Grid; g.State() != cell.Completed {
		g.SetState(cell.Evolving)
	}

	token := &Token{}
	done := make(chan struct{})
	e.token = token
	e.done = done

	log := logging.Logger().With("run", e.storage.ID)
	log.Info("computation started",
		"algorithm", e.algorithm,
		"size", fmt.Sprintf("%dx%d", e.storage.Grid.Width(), e.storage.Grid.Height()),
		"max_iteration", e.storage.Properties.MaxIteration)

	go func() {
		defer close(done)
		start := time.Now()

		var ok bool
		switch e.algorithm {
		case Linear:
			ok = FillLinear(e.storage, e.escaper, token)
		default:
			ok = FillShuffled(e.storage, e.escaper, e.workers, token)
		}

		e.mu.Lock()
		if ok {
			e.state = Finished
		} else {
			e.state = Aborted
		}
		state := e.state
		e.mu.Unlock()

		log.Info("computation ended",
			"state", state,
			"grid_state", e.storage.Grid.State(),
			"elapsed", time.Since(start))
	}()
}

// Wait blocks until the current worker, if any, has exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Stop cancels the worker and blocks until it has exited.
//
// TODO: Make stopping asynchronous with an explicit Stopping state so that
// callers on a UI loop do not block.
func (e *Engine) Stop() {
	e.mu.Lock()
	token, done := e.token, e.done
	e.mu.Unlock()

	if token == nil {
		return
	}
	token.Cancel()
	<-done
}
