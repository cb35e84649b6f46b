package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crypto_dash/internal/domain"
)

// Status is the lifecycle state of a bound view.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Func loads the payload for key. It should honour ctx, but the controller does
// not rely on it: results of superseded requests are discarded regardless.
type Func[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Snapshot is an immutable copy of a controller's state. Data is shared with the
// controller and must be treated as read-only.
type Snapshot[K comparable, T any] struct {
	Status     Status
	Key        K
	HasKey     bool
	Data       T
	HasData    bool
	Err        error
	Message    string
	NoData     bool
	Generation uint64
	UpdatedAt  time.Time
}

// Busy is the global busy signal a controller holds while Loading.
type Busy interface {
	Acquire() (release func())
}

// Recorder receives lifecycle counters.
type Recorder interface {
	FetchIssued()
	FetchSucceeded()
	FetchFailed()
	FetchCancelled()
	StaleDiscarded()
}

type options struct {
	busy     Busy
	recorder Recorder
	logger   *slog.Logger
	message  func(error) string
}

// Option configures a Controller.
type Option func(*options)

// WithBusy wires the global busy indicator.
func WithBusy(b Busy) Option {
	return func(o *options) { o.busy = b }
}

// WithRecorder wires lifecycle metrics.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFailureMessage overrides how errors are turned into user-facing text.
func WithFailureMessage(fn func(error) string) Option {
	return func(o *options) { o.message = fn }
}

// Controller binds one view to its data. At most one request is live at a time,
// and a result is applied only when its generation is still the current one.
type Controller[K comparable, T any] struct {
	name   string
	fetch  Func[K, T]
	parent context.Context
	opts   options

	mu      sync.Mutex
	state   Snapshot[K, T]
	gen     uint64
	cancel  context.CancelFunc
	release func()
	closed  bool
	subs    map[int]func(Snapshot[K, T])
	nextSub int

	wg sync.WaitGroup
}

// New creates an Idle controller. Cancelling ctx cancels every request it issues.
func New[K comparable, T any](ctx context.Context, name string, fn Func[K, T], opts ...Option) *Controller[K, T] {
	o := options{message: DefaultFailureMessage}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With(slog.String("module", "fetch"), slog.String("view", name))

	return &Controller[K, T]{
		name:   name,
		fetch:  fn,
		parent: ctx,
		opts:   o,
		subs:   make(map[int]func(Snapshot[K, T])),
	}
}

// Name returns the view name the controller was created with.
func (c *Controller[K, T]) Name() string {
	return c.name
}

// Load binds the view to key. A different key (or an Idle controller) enters
// Loading, cancelling any in-flight request first; the same key is a no-op.
func (c *Controller[K, T]) Load(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.state.HasKey && c.state.Key == key && c.state.Status != Idle {
		return
	}
	c.start(key)
}

// Retry re-enters Loading for the current key. It does nothing while a request
// is already live or before the first Load.
func (c *Controller[K, T]) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.state.HasKey || c.state.Status == Loading {
		return
	}
	c.start(c.state.Key)
}

// Refresh re-issues a settled view (Ready or Failed) for its current key.
func (c *Controller[K, T]) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.state.HasKey {
		return
	}
	if c.state.Status != Ready && c.state.Status != Failed {
		return
	}
	c.start(c.state.Key)
}

// Reset unbinds the view: the live request is cancelled and the controller
// returns to Idle with no key and no data.
func (c *Controller[K, T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.state.HasKey {
		return
	}
	c.abandon()
	c.gen++
	c.state = Snapshot[K, T]{Generation: c.gen}
	c.notify()
}

// start issues a new request for key. Caller holds c.mu.
func (c *Controller[K, T]) start(key K) {
	c.abandon()

	keyChanged := !c.state.HasKey || c.state.Key != key
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	if c.opts.busy != nil {
		c.release = c.opts.busy.Acquire()
	}

	c.state.Status = Loading
	c.state.Key = key
	c.state.HasKey = true
	c.state.Err = nil
	c.state.Message = ""
	c.state.NoData = false
	c.state.Generation = gen
	if keyChanged {
		var zero T
		c.state.Data = zero
		c.state.HasData = false
	}

	if c.opts.recorder != nil {
		c.opts.recorder.FetchIssued()
	}
	c.opts.logger.Debug("Fetch issued", slog.Uint64("generation", gen), slog.Any("key", key))
	c.notify()

	c.wg.Add(1)
	go c.run(ctx, gen, key)
}

// abandon cancels the live request and hands back its busy hold. Caller holds c.mu.
func (c *Controller[K, T]) abandon() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		if c.opts.recorder != nil {
			c.opts.recorder.FetchCancelled()
		}
	}
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *Controller[K, T]) run(ctx context.Context, gen uint64, key K) {
	defer c.wg.Done()

	var (
		data T
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.opts.logger.Error("Fetch panic recovered", slog.Any("panic", r))
				err = fmt.Errorf("%s: panic: %v", c.name, r)
			}
		}()
		data, err = c.fetch(ctx, key)
	}()

	c.finish(ctx, gen, data, err)
}

func (c *Controller[K, T]) finish(ctx context.Context, gen uint64, data T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		if c.opts.recorder != nil {
			c.opts.recorder.StaleDiscarded()
		}
		c.opts.logger.Debug("Stale result discarded", slog.Uint64("generation", gen), slog.Uint64("current", c.gen))
		return
	}

	// Sampled before the request context is released below
	cancelled := ctx.Err() != nil

	// Leaving Loading: drop the request context and the busy hold exactly once
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.release != nil {
		c.release()
		c.release = nil
	}

	switch {
	case cancelled || domain.IsCancellation(err):
		// The parent shut down underneath the current request
		c.state.Status = Idle
		if c.opts.recorder != nil {
			c.opts.recorder.FetchCancelled()
		}
	case err != nil:
		c.state.Status = Failed
		c.state.Err = err
		c.state.Message = c.opts.message(err)
		c.state.NoData = errors.Is(err, domain.ErrNoData)
		if c.opts.recorder != nil {
			c.opts.recorder.FetchFailed()
		}
		c.opts.logger.Warn("Fetch failed", slog.Uint64("generation", gen), slog.Any("error", err))
	default:
		c.state.Status = Ready
		c.state.Data = data
		c.state.HasData = true
		c.state.UpdatedAt = time.Now()
		if c.opts.recorder != nil {
			c.opts.recorder.FetchSucceeded()
		}
	}
	c.notify()
}

// Close tears the view down: the live request is cancelled, no subscriber is
// called afterwards, and Close returns once every worker has exited.
// It must not be called from a subscriber.
func (c *Controller[K, T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.abandon()
	if c.state.Status == Loading {
		c.state.Status = Idle
	}
	c.subs = nil
	c.mu.Unlock()

	c.wg.Wait()
}

// Snapshot returns the current state.
func (c *Controller[K, T]) Snapshot() Snapshot[K, T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every state change. fn runs under the controller
// lock so snapshots arrive in order; it must not call back into this controller.
func (c *Controller[K, T]) Subscribe(fn func(Snapshot[K, T])) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller[K, T]) notify() {
	for _, fn := range c.subs {
		fn(c.state)
	}
}

// DefaultFailureMessage turns a fetch error into the text shown next to the retry action.
func DefaultFailureMessage(err error) string {
	var netErr *domain.NetworkError
	switch {
	case errors.Is(err, domain.ErrNoData):
		return "No data available"
	case errors.Is(err, domain.ErrNotFound):
		return "Coin not found"
	case errors.As(err, &netErr) && netErr.StatusCode == 429:
		return "Rate limited by the market data provider, try again shortly"
	case errors.As(err, &netErr):
		return "Failed to load market data, check your connection"
	default:
		return "Something went wrong while loading data"
	}
}
