package pricing

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"
)

const basisPoints = 10000

// Tier maps bookings up to MaxMinutes (0 means unbounded) to a multiplier.
type Tier struct {
	Name       string
	MaxMinutes int
	Multiplier float64
}

// Config holds the engine's tables. It never changes after construction.
type Config struct {
	Tiers            []Tier
	WeekendSurcharge float64
	SurchargeDays    []time.Weekday
	// Extras maps extra ids to fixed minor-unit amounts.
	Extras map[string]int64
}

// DefaultTiers are the standard duration tiers.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "standard", MaxMinutes: 60, Multiplier: 1.00},
		{Name: "extended", MaxMinutes: 120, Multiplier: 1.10},
		{Name: "overnight", MaxMinutes: 720, Multiplier: 1.25},
		{Name: "weekend-length", MaxMinutes: 0, Multiplier: 1.50},
	}
}

// DefaultConfig returns the default tiers with a Saturday/Sunday surcharge.
func DefaultConfig() Config {
	return Config{
		Tiers:            DefaultTiers(),
		WeekendSurcharge: 1.20,
		SurchargeDays:    []time.Weekday{time.Saturday, time.Sunday},
		Extras:           map[string]int64{},
	}
}

// Input is everything a price depends on.
type Input struct {
	DurationMinutes int
	// BaseRate is the hourly rate for the service.
	BaseRate Money
	Extras   []string
	// At is the booking start; the surcharge day is read in Location.
	At       time.Time
	Location *time.Location
}

// Quote is a computed price with its breakdown.
type Quote struct {
	Total          Money   `json:"total"`
	Tier           string  `json:"tier"`
	TierMultiplier float64 `json:"tier_multiplier"`
	DayMultiplier  float64 `json:"day_multiplier"`
	ExtrasMinor    int64   `json:"extras_minor"`
}

// Engine prices bookings. It holds no mutable state.
type Engine struct {
	tiers     []Tier
	surcharge float64
	days      map[time.Weekday]bool
	extras    map[string]int64
}

// NewEngine builds an engine, sorting tiers by bound with unbounded last.
func NewEngine(cfg Config) *Engine {
	tiers := append([]Tier(nil), cfg.Tiers...)
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		a, b := tiers[i].MaxMinutes, tiers[j].MaxMinutes
		if a == 0 {
			return false
		}
		if b == 0 {
			return true
		}
		return a < b
	})
	surcharge := cfg.WeekendSurcharge
	if surcharge < 1 {
		surcharge = 1
	}
	days := make(map[time.Weekday]bool, len(cfg.SurchargeDays))
	for _, d := range cfg.SurchargeDays {
		days[d] = true
	}
	extras := make(map[string]int64, len(cfg.Extras))
	for id, amount := range cfg.Extras {
		extras[id] = amount
	}
	return &Engine{tiers: tiers, surcharge: surcharge, days: days, extras: extras}
}

// TierFor returns the tier a duration falls into.
func (e *Engine) TierFor(durationMinutes int) Tier {
	for _, t := range e.tiers {
		if t.MaxMinutes == 0 || durationMinutes <= t.MaxMinutes {
			return t
		}
	}
	return e.tiers[len(e.tiers)-1]
}

// Validate rejects inputs Price cannot handle.
func (e *Engine) Validate(in Input) error {
	if in.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if in.BaseRate.AmountMinor < 0 {
		return fmt.Errorf("%w: base rate must not be negative", ErrInvalidInput)
	}
	if _, err := NormalizeCurrency(in.BaseRate.Currency); err != nil {
		return err
	}
	for _, id := range in.Extras {
		if _, ok := e.extras[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownExtra, id)
		}
	}
	return nil
}

// Price computes
//
//	round(rate * minutes/60 * tier * day) + sum(extras)
//
// with exact rational arithmetic and rounding half away from zero.
func (e *Engine) Price(in Input) (Quote, error) {
	if err := e.Validate(in); err != nil {
		return Quote{}, err
	}
	currency, _ := NormalizeCurrency(in.BaseRate.Currency)
	tier := e.TierFor(in.DurationMinutes)
	day := e.dayMultiplier(in.At, in.Location)

	num := big.NewInt(in.BaseRate.AmountMinor)
	num.Mul(num, big.NewInt(int64(in.DurationMinutes)))
	num.Mul(num, big.NewInt(toBasisPoints(tier.Multiplier)))
	num.Mul(num, big.NewInt(toBasisPoints(day)))
	den := big.NewInt(60 * basisPoints * basisPoints)
	base := roundHalfAwayFromZero(num, den)

	var extras int64
	for _, id := range in.Extras {
		extras += e.extras[id]
	}

	return Quote{
		Total:          Money{AmountMinor: base + extras, Currency: currency},
		Tier:           tier.Name,
		TierMultiplier: tier.Multiplier,
		DayMultiplier:  day,
		ExtrasMinor:    extras,
	}, nil
}

func (e *Engine) dayMultiplier(at time.Time, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}
	if e.days[at.In(loc).Weekday()] {
		return e.surcharge
	}
	return 1
}

func toBasisPoints(multiplier float64) int64 {
	return int64(math.Round(multiplier * basisPoints))
}

func roundHalfAwayFromZero(num, den *big.Int) int64 {
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(num, den, r)
	r.Abs(r).Mul(r, big.NewInt(2))
	if r.Cmp(new(big.Int).Abs(den)) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	return q.Int64()
}
