package search

import (
	"strings"
	"sync"
	"time"

	"crypto_dash/internal/domain"
)

// Key is a navigation key the suggestion list reacts to.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyEnter
	KeyEscape
)

// Options tunes the engine. Non-positive limits fall back to DefaultOptions.
type Options struct {
	Debounce     time.Duration // quiet period before the query settles
	BlurGrace    time.Duration // delay before blur closes the list
	PopularLimit int           // suggestions shown for an empty query
	MatchLimit   int           // suggestions shown for a non-empty query

	// OnChange is called, outside any lock, whenever a timer changes state.
	OnChange func()
}

// DefaultOptions returns the standard timings and limits.
func DefaultOptions() Options {
	return Options{
		Debounce:     300 * time.Millisecond,
		BlurGrace:    150 * time.Millisecond,
		PopularLimit: 6,
		MatchLimit:   8,
	}
}

// Matches reports whether the coin's name or symbol contains q, ignoring case.
// q must already be lower case.
func Matches(c *domain.Coin, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Symbol), q)
}

// Filter returns the coins matching query. An empty query returns coins unchanged.
func Filter(coins []domain.Coin, query string) []domain.Coin {
	q := normalize(query)
	if q == "" {
		return coins
	}
	out := make([]domain.Coin, 0, len(coins))
	for i := range coins {
		if Matches(&coins[i], q) {
			out = append(out, coins[i])
		}
	}
	return out
}

// Suggest builds the bounded suggestion list: the first popular coins for an
// empty query, otherwise up to max matches in filtered order.
func Suggest(coins []domain.Coin, query string, popular, max int) []domain.Coin {
	list, limit := coins, popular
	if normalize(query) != "" {
		list, limit = Filter(coins, query), max
	}
	if limit < len(list) {
		list = list[:limit]
	}
	out := make([]domain.Coin, len(list))
	copy(out, list)
	return out
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Engine holds the search box state: raw text, the debounced query and the
// suggestion list with its keyboard cursor. It is safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	opts Options

	coins       []domain.Coin
	text        string
	query       string
	suggestions []domain.Coin
	active      int
	open        bool
	focused     bool

	debouncer *Debouncer
	blurTimer *time.Timer
	blurEpoch uint64
}

// NewEngine creates an engine with opts.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.BlurGrace < 0 {
		opts.BlurGrace = 0
	}
	if opts.PopularLimit <= 0 {
		opts.PopularLimit = def.PopularLimit
	}
	if opts.MatchLimit <= 0 {
		opts.MatchLimit = def.MatchLimit
	}
	return &Engine{
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce),
	}
}

// SetCoins replaces the data set suggestions are drawn from.
func (e *Engine) SetCoins(coins []domain.Coin) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coins = coins
	e.recompute()
}

// SetInput records a keystroke. The query follows after the debounce period.
func (e *Engine) SetInput(text string) {
	e.mu.Lock()
	e.text = text
	e.open = true
	e.mu.Unlock()

	e.debouncer.Trigger(func() { e.settle(text) })
}

func (e *Engine) settle(text string) {
	e.mu.Lock()
	e.query = strings.TrimSpace(text)
	e.recompute()
	e.mu.Unlock()
	e.changed()
}

// recompute rebuilds suggestions and resets the cursor. Caller holds e.mu.
func (e *Engine) recompute() {
	e.suggestions = Suggest(e.coins, e.query, e.opts.PopularLimit, e.opts.MatchLimit)
	e.active = 0
}

// Focus opens the list and cancels a pending blur close.
func (e *Engine) Focus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = true
	e.open = true
	e.cancelBlur()
}

// Blur closes the list after the grace delay, so a selection made right
// before focus was lost still lands.
func (e *Engine) Blur() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.focused = false
	e.cancelBlur()
	epoch := e.blurEpoch
	e.blurTimer = time.AfterFunc(e.opts.BlurGrace, func() {
		e.mu.Lock()
		if epoch != e.blurEpoch || e.focused {
			e.mu.Unlock()
			return
		}
		e.open = false
		e.blurTimer = nil
		e.mu.Unlock()
		e.changed()
	})
}

// cancelBlur invalidates any pending blur close. Caller holds e.mu.
func (e *Engine) cancelBlur() {
	e.blurEpoch++
	if e.blurTimer != nil {
		e.blurTimer.Stop()
		e.blurTimer = nil
	}
}

// HandleKey applies a navigation key and reports whether it was consumed.
func (e *Engine) HandleKey(k Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.suggestions)
	switch k {
	case KeyDown:
		if !e.open {
			e.open = true
			return true
		}
		if n > 0 {
			e.active = (e.active + 1) % n
		}
		return true
	case KeyUp:
		if !e.open {
			return false
		}
		if n > 0 {
			e.active = (e.active - 1 + n) % n
		}
		return true
	case KeyEnter:
		if !e.open || n == 0 {
			return false
		}
		e.commit(e.active)
		return true
	case KeyEscape:
		if !e.open {
			return false
		}
		e.open = false
		return true
	}
	return false
}

// Select commits the suggestion at index i (pointer selection).
func (e *Engine) Select(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.suggestions) {
		return false
	}
	e.commit(i)
	return true
}

// commit writes the suggestion's name into the input and closes the list.
// Caller holds e.mu.
func (e *Engine) commit(i int) {
	name := e.suggestions[i].Name
	e.text = name
	e.open = false
	e.cancelBlur()
	e.debouncer.Trigger(func() { e.settle(name) })
}

// Clear empties the input immediately, skipping the debounce.
func (e *Engine) Clear() {
	e.debouncer.Cancel()
	e.mu.Lock()
	e.text = ""
	e.query = ""
	e.recompute()
	e.mu.Unlock()
}

// Text returns the raw input text.
func (e *Engine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// Query returns the debounced query used for filtering.
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Suggestions returns a copy of the current suggestion list.
func (e *Engine) Suggestions() []domain.Coin {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Coin, len(e.suggestions))
	copy(out, e.suggestions)
	return out
}

// ActiveIndex returns the keyboard cursor within the suggestion list.
func (e *Engine) ActiveIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// IsOpen reports whether the suggestion list is shown.
func (e *Engine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Close stops all timers.
func (e *Engine) Close() {
	e.debouncer.Stop()
	e.mu.Lock()
	e.cancelBlur()
	e.mu.Unlock()
}

func (e *Engine) changed() {
	if e.opts.OnChange != nil {
		e.opts.OnChange()
	}
}
