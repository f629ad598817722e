package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/lure/internal/model"
)

const (
	// DefaultTopIPs is how many source addresses a summary ranks.
	DefaultTopIPs = 10

	// DefaultRecent is how many recent events a summary keeps.
	DefaultRecent = 10

	// minuteLayout keys the per-minute histogram.
	minuteLayout = "2006-01-02T15:04"
)

// Count is one labelled tally.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is the aggregate view over a set of events.
type Summary struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	TotalEvents      int           `json:"total_events"`
	UniqueIPs        int           `json:"unique_ips"`
	FirstSeen        time.Time     `json:"first_seen"`
	LastSeen         time.Time     `json:"last_seen"`
	ByService        []Count       `json:"by_service"`
	ByClassification []Count       `json:"by_classification"`
	ByTool           []Count       `json:"by_tool"`
	PerMinute        []Count       `json:"per_minute"`
	TopIPs           []Count       `json:"top_ips"`
	Recent           []model.Event `json:"recent"`
}

// SummaryOption configures Summarize.
type SummaryOption func(*summaryConfig)

type summaryConfig struct {
	topIPs int
	recent int
	now    func() time.Time
}

// WithTopIPs sets how many source addresses are ranked.
func WithTopIPs(n int) SummaryOption {
	return func(c *summaryConfig) {
		c.topIPs = n
	}
}

// WithRecent sets how many recent events are kept.
func WithRecent(n int) SummaryOption {
	return func(c *summaryConfig) {
		c.recent = n
	}
}

// WithGeneratedAt fixes the generation timestamp.
func WithGeneratedAt(t time.Time) SummaryOption {
	return func(c *summaryConfig) {
		c.now = func() time.Time { return t }
	}
}

// Summarize aggregates events, which must be in ascending append order.
// Events without a detected tool are not counted in ByTool.
func Summarize(events []model.Event, opts ...SummaryOption) *Summary {
	cfg := summaryConfig{
		topIPs: DefaultTopIPs,
		recent: DefaultRecent,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	services := make(map[string]int)
	classes := make(map[string]int)
	tools := make(map[string]int)
	minutes := make(map[string]int)
	ips := make(map[string]int)

	s := &Summary{
		GeneratedAt: cfg.now().UTC(),
		TotalEvents: len(events),
	}
	for _, e := range events {
		services[string(e.Service)]++
		classes[string(e.Classification)]++
		if e.Tool.Detected() {
			tools[string(e.Tool)]++
		}
		ips[e.IP]++

		if e.Timestamp.IsZero() {
			continue
		}
		ts := e.Timestamp.UTC()
		minutes[ts.Format(minuteLayout)]++
		if s.FirstSeen.IsZero() || ts.Before(s.FirstSeen) {
			s.FirstSeen = ts
		}
		if ts.After(s.LastSeen) {
			s.LastSeen = ts
		}
	}

	s.UniqueIPs = len(ips)
	s.ByService = ranked(services)
	s.ByClassification = ranked(classes)
	s.ByTool = ranked(tools)
	s.TopIPs = ranked(ips)
	if len(s.TopIPs) > cfg.topIPs {
		s.TopIPs = s.TopIPs[:cfg.topIPs]
	}

	s.PerMinute = make([]Count, 0, len(minutes))
	for k, v := range minutes {
		s.PerMinute = append(s.PerMinute, Count{Key: k, Count: v})
	}
	slices.SortFunc(s.PerMinute, func(a, b Count) int { return cmp.Compare(a.Key, b.Key) })

	s.Recent = make([]model.Event, 0, min(cfg.recent, len(events)))
	for i := len(events) - 1; i >= 0 && len(s.Recent) < cfg.recent; i-- {
		s.Recent = append(s.Recent, events[i])
	}
	return s
}

// countOf returns the tally for key in counts, or zero.
func countOf(counts []Count, key string) int {
	for _, c := range counts {
		if c.Key == key {
			return c.Count
		}
	}
	return 0
}

// Empty reports whether the summary covers no events.
func (s *Summary) Empty() bool {
	return s.TotalEvents == 0
}

// ranked orders counts by descending count, then ascending key.
func ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}
