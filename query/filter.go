package query

import (
	"errors"
	"fmt"
	"math"
	"time"

	"procinfo/models"
)

// ErrInvalidFilter marks client input that was rejected before querying.
var ErrInvalidFilter = errors.New("invalid filter")

// DefaultSettle is the delay between the two refreshes when none is given.
const DefaultSettle = 500 * time.Millisecond

// Filter is the set of optional query parameters. Thresholds are strict
// greater-than and combine with AND.
type Filter struct {
	PID          *int64
	MinUsage     *float64
	MinRSSKB     *uint64
	MinRuntimeMS *uint64
	SettleMS     *uint64
}

// Predicate reports whether a process is kept.
type Predicate func(models.ProcessMetrics) bool

func MinUsage(threshold float64) Predicate {
	return func(m models.ProcessMetrics) bool {
		return m.Usage > threshold
	}
}

// MinRSSKB compares in KiB; kb*1024 saturates instead of wrapping.
func MinRSSKB(kb uint64) Predicate {
	threshold := uint64(math.MaxUint64)
	if kb <= math.MaxUint64/1024 {
		threshold = kb * 1024
	}
	return func(m models.ProcessMetrics) bool {
		return m.RSS > threshold
	}
}

func MinRuntimeMS(threshold uint64) Predicate {
	return func(m models.ProcessMetrics) bool {
		return m.RuntimeMS > threshold
	}
}

// Predicates builds one predicate per threshold set in f.
func (f Filter) Predicates() []Predicate {
	var preds []Predicate
	if f.MinUsage != nil {
		preds = append(preds, MinUsage(*f.MinUsage))
	}
	if f.MinRSSKB != nil {
		preds = append(preds, MinRSSKB(*f.MinRSSKB))
	}
	if f.MinRuntimeMS != nil {
		preds = append(preds, MinRuntimeMS(*f.MinRuntimeMS))
	}
	return preds
}

// Apply keeps the records matching every predicate, preserving order.
func Apply(in []models.ProcessMetrics, preds ...Predicate) []models.ProcessMetrics {
	out := make([]models.ProcessMetrics, 0, len(in))
next:
	for _, m := range in {
		for _, keep := range preds {
			if !keep(m) {
				continue next
			}
		}
		out = append(out, m)
	}
	return out
}

// Settle returns the delay to use, falling back to def when unset.
func (f Filter) Settle(def time.Duration) time.Duration {
	if f.SettleMS == nil {
		return def
	}
	return time.Duration(*f.SettleMS) * time.Millisecond
}

// maxSettleMS is the longest settle delay a time.Duration can hold.
const maxSettleMS = uint64(math.MaxInt64 / int64(time.Millisecond))

// Validate rejects values the engine cannot run with. maxSettle <= 0 disables
// the configured cap, but never the time.Duration limit.
func (f Filter) Validate(maxSettle time.Duration) error {
	if f.MinUsage != nil && math.IsNaN(*f.MinUsage) {
		return fmt.Errorf("%w: min_usage is NaN", ErrInvalidFilter)
	}
	if f.SettleMS != nil && *f.SettleMS > maxSettleMS {
		return fmt.Errorf("%w: settle_ms %d overflows a duration", ErrInvalidFilter, *f.SettleMS)
	}
	if f.SettleMS != nil && maxSettle > 0 {
		if *f.SettleMS > uint64(maxSettle/time.Millisecond) {
			return fmt.Errorf("%w: settle_ms %d exceeds limit %d", ErrInvalidFilter, *f.SettleMS, maxSettle.Milliseconds())
		}
	}
	return nil
}
