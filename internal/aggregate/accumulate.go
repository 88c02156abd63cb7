package aggregate

import (
	"sort"

	"rtbcli/internal/domain"
)

// Bucket is one running stat accumulator for a (category, key) pair.
type Bucket struct {
	Label  string
	First  string // top-ranked profile first attributed to the bucket
	Count  int
	Total  float64
	pctSum float64
	pctN   int
}

// AvgPct returns the average change percentage fed into the bucket, or 0
// when no profile contributed a change.
func (b *Bucket) AvgPct() float64 {
	if b.pctN == 0 {
		return 0
	}
	return b.pctSum / float64(b.pctN)
}

// Stats accumulates per-category buckets over one reconciliation run.
type Stats struct {
	categories map[string]map[string]*Bucket
}

// NewStats creates an empty accumulator.
func NewStats() *Stats {
	return &Stats{categories: map[string]map[string]*Bucket{}}
}

// Add feeds one profile into a bucket. The first profile attributed to a
// bucket becomes its First pointer (callers feed profiles in rank order).
// changePct is nil when the profile recorded no change today.
func (s *Stats) Add(category, key, label, uri string, networth float64, changePct *float64) {
	if key == "" {
		return
	}
	buckets, ok := s.categories[category]
	if !ok {
		buckets = map[string]*Bucket{}
		s.categories[category] = buckets
	}
	b, ok := buckets[key]
	if !ok {
		b = &Bucket{Label: label, First: uri}
		buckets[key] = b
	}
	b.Count++
	b.Total += networth
	if changePct != nil {
		b.pctSum += *changePct
		b.pctN++
	}
}

// Categories returns the category names in sorted order.
func (s *Stats) Categories() []string {
	names := make([]string, 0, len(s.categories))
	for c := range s.categories {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Buckets returns a category's buckets keyed by bucket key.
func (s *Stats) Buckets(category string) map[string]*Bucket {
	return s.categories[category]
}

// Movers collects per-profile deltas over one run, independently for the
// absolute value and percentage bases.
type Movers struct {
	value []domain.Mover
	pct   []domain.Mover
}

// NewMovers creates an empty collector.
func NewMovers() *Movers {
	return &Movers{}
}

// Add records one profile's day-over-day change.
func (m *Movers) Add(uri string, value, pct float64) {
	m.value = append(m.value, domain.Mover{URI: uri, Value: domain.Round3(value)})
	m.pct = append(m.pct, domain.Mover{URI: uri, Value: domain.Round3(pct)})
}

// Len returns the number of recorded movers.
func (m *Movers) Len() int {
	return len(m.value)
}

// winners returns the positive deltas sorted descending, capped at n.
func winners(movers []domain.Mover, n int) []domain.Mover {
	var out []domain.Mover
	for _, mv := range movers {
		if mv.Value > 0 {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// losers returns the negative deltas sorted ascending, capped at n.
func losers(movers []domain.Mover, n int) []domain.Mover {
	var out []domain.Mover
	for _, mv := range movers {
		if mv.Value < 0 {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
