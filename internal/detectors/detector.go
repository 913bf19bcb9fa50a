package detectors

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"procwatch/internal/domain"
)

// Detector scans procurement data for one pattern and emits flags. Detectors
// never write to the store; failures are isolated by the orchestrator.
type Detector interface {
	Name() string
	Type() domain.FlagType
	Detect(ctx context.Context) ([]domain.Flag, error)
}

// Thresholds holds the data-derived and statutory constants the detectors
// score against. Construct once at startup; never mutate afterwards.
type Thresholds struct {
	// SingleBidderMinValue is the minimum estimated value for a one-bidder
	// tender to be worth flagging at all.
	SingleBidderMinValue decimal.Decimal
	// HighValue marks the estimate above which single-bidder awards get the
	// value bonus.
	HighValue decimal.Decimal
	// DeadlineP25Days and DeadlineP10Days are empirical percentiles of
	// days-open across the dataset.
	DeadlineP25Days int
	DeadlineP10Days int
	// LowValueCeiling is the statutory ceiling for low-value procedures.
	LowValueCeiling decimal.Decimal
	// SplitThreshold is the per-contract value under which repeated quarterly
	// awards suggest contract splitting.
	SplitThreshold decimal.Decimal
	// Statutory lists the procurement-law value thresholds scanned by the
	// threshold-manipulation detector, ascending.
	Statutory []decimal.Decimal
	// RotationHighValue is the combined entity volume above which rotation
	// gets the value bonus.
	RotationHighValue decimal.Decimal
}

// DefaultThresholds returns the production constants (values in MKD).
func DefaultThresholds() Thresholds {
	return Thresholds{
		SingleBidderMinValue: decimal.NewFromInt(1_000_000),
		HighValue:            decimal.NewFromInt(5_000_000),
		DeadlineP25Days:      7,
		DeadlineP10Days:      6,
		LowValueCeiling:      decimal.NewFromInt(1_000_000),
		SplitThreshold:       decimal.NewFromInt(1_000_000),
		Statutory: []decimal.Decimal{
			decimal.NewFromInt(500_000),
			decimal.NewFromInt(1_000_000),
			decimal.NewFromInt(2_000_000),
			decimal.NewFromInt(5_000_000),
			decimal.NewFromInt(10_000_000),
			decimal.NewFromInt(20_000_000),
		},
		RotationHighValue: decimal.NewFromInt(10_000_000),
	}
}

// severityFor maps a detector score to a severity band. The critical band is
// uniform at 80; the high and medium cutoffs vary per detector.
func severityFor(score, highAt, mediumAt float64) domain.Severity {
	switch {
	case score >= 80:
		return domain.SeverityCritical
	case score >= highAt:
		return domain.SeverityHigh
	case score >= mediumAt:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func capScore(s float64) float64 {
	if s > 100 {
		return 100
	}
	return s
}

// daysBetween returns whole days from a to b, negative when b precedes a.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// withinPctBelow reports whether v lies in [limit*(1-pct/100), limit).
func withinPctBelow(v, limit decimal.Decimal, pct int64) bool {
	if v.GreaterThanOrEqual(limit) {
		return false
	}
	floor := limit.Mul(decimal.NewFromInt(100 - pct)).Div(decimal.NewFromInt(100))
	return v.GreaterThanOrEqual(floor)
}

// withinPctOf reports whether a is within pct percent of b (b non-zero).
func withinPctOf(a, b decimal.Decimal, pct int64) bool {
	if b.IsZero() {
		return false
	}
	diff := a.Sub(b).Abs()
	return diff.Mul(decimal.NewFromInt(100)).LessThanOrEqual(b.Abs().Mul(decimal.NewFromInt(pct)))
}
