// Package refund maps the time left before a booking starts to the share of
// the price returned on cancellation.
package refund

import (
	"math"
	"sort"
	"time"
)

// Tier grants Fraction when at least MinNotice remains before the start.
type Tier struct {
	MinNotice time.Duration
	Fraction  float64
}

// Policy is an ordered set of notice tiers. The zero value refunds nothing.
type Policy struct {
	tiers []Tier
}

// DefaultTiers are 48h -> 90% and 24h -> 50%.
func DefaultTiers() []Tier {
	return []Tier{
		{MinNotice: 48 * time.Hour, Fraction: 0.90},
		{MinNotice: 24 * time.Hour, Fraction: 0.50},
	}
}

// NewPolicy builds a policy. Fractions are clamped to [0,1] and made
// non-decreasing in notice so a longer notice never refunds less.
func NewPolicy(tiers []Tier) *Policy {
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinNotice < sorted[j].MinNotice })
	floor := 0.0
	for i := range sorted {
		f := math.Min(math.Max(sorted[i].Fraction, 0), 1)
		if f < floor {
			f = floor
		}
		sorted[i].Fraction = f
		floor = f
	}
	// Longest notice first for lookup.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return &Policy{tiers: sorted}
}

// DefaultPolicy returns NewPolicy(DefaultTiers()).
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultTiers())
}

// Fraction returns the refund share for the given notice. Lower tier bounds
// are inclusive; negative notice always yields 0.
func (p *Policy) Fraction(untilStart time.Duration) float64 {
	if p == nil || untilStart < 0 {
		return 0
	}
	for _, t := range p.tiers {
		if untilStart >= t.MinNotice {
			return t.Fraction
		}
	}
	return 0
}

// Amount applies fraction to a minor-unit price, rounding half away from zero.
func Amount(priceMinor int64, fraction float64) int64 {
	if fraction <= 0 || priceMinor == 0 {
		return 0
	}
	if fraction >= 1 {
		return priceMinor
	}
	// Fractions are applied in basis points so 0.9 stays exact.
	bp := int64(math.Round(fraction * 10000))
	num := priceMinor * bp
	q, r := num/10000, num%10000
	if r < 0 {
		r = -r
	}
	if r*2 >= 10000 {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}
