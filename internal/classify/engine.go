package classify

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nao1215/lure/internal/model"
)

// ring is a fixed-capacity timestamp history for one address.
type ring struct {
	buf   []time.Time
	next  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]time.Time, capacity)}
}

func (r *ring) push(ts time.Time) {
	r.buf[r.next] = ts
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// snapshot returns the stored timestamps oldest first.
func (r *ring) snapshot() []time.Time {
	out := make([]time.Time, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := range r.count {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Engine owns the per-IP request history used by the timing rule.
// It is safe for concurrent use by many sessions.
type Engine struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *ring]
	window  int
	botSpan time.Duration
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWindow sets how many recent requests the timing rule inspects.
// The per-IP ring holds exactly this many timestamps.
func WithWindow(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithBotSpan sets the span under which a full window is labelled bot.
func WithBotSpan(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.botSpan = d
		}
	}
}

// WithClock overrides the time source used to stamp observations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine tracking at most maxClients addresses.
// A non-positive maxClients uses DefaultMaxClients.
func NewEngine(maxClients int, opts ...EngineOption) (*Engine, error) {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	cache, err := lru.New[string, *ring](maxClients)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		clients: cache,
		window:  DefaultWindow,
		botSpan: DefaultBotSpan,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Observe records one request from ip at the current time and returns its
// classification. The append and the read of the window happen under one
// lock, so concurrent requests from the same address each see their own
// append and nothing is lost.
func (e *Engine) Observe(ip string, tool model.Tool) model.Classification {
	e.mu.Lock()
	r, ok := e.clients.Get(ip)
	if !ok {
		r = newRing(e.window)
		e.clients.Add(ip, r)
	}
	r.push(e.now())
	history := r.snapshot()
	e.mu.Unlock()

	return classifyWindow(history, tool, e.window, e.botSpan)
}

// History returns a copy of the recorded timestamps for ip, oldest first.
func (e *Engine) History(ip string) []time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.clients.Peek(ip)
	if !ok {
		return nil
	}
	return r.snapshot()
}

// Len returns the number of addresses currently tracked.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clients.Len()
}
