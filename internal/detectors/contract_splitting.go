package detectors

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// ContractSplitting flags entities that award one winner several sub-threshold
// contracts inside a single quarter whose sum crosses the threshold, a common
// way to stay under procedure limits.
type ContractSplitting struct {
	agg ports.AggregateReader
	cfg Thresholds
}

func NewContractSplitting(agg ports.AggregateReader, cfg Thresholds) *ContractSplitting {
	return &ContractSplitting{agg: agg, cfg: cfg}
}

func (d *ContractSplitting) Name() string          { return string(d.Type()) }
func (d *ContractSplitting) Type() domain.FlagType { return domain.FlagContractSplitting }

func (d *ContractSplitting) Detect(ctx context.Context) ([]domain.Flag, error) {
	awards, err := d.agg.QuarterlyAwards(ctx, d.cfg.SplitThreshold)
	if err != nil {
		return nil, fmt.Errorf("contract splitting: quarterly awards: %w", err)
	}

	eighty := d.cfg.SplitThreshold.Mul(decimal.NewFromInt(80)).Div(decimal.NewFromInt(100))

	var flags []domain.Flag
	for _, a := range awards {
		if a.Contracts < 3 || !a.TotalSum.GreaterThan(d.cfg.SplitThreshold) {
			continue
		}

		score := 65.0
		evidence := map[string]any{
			"entity":    a.Entity,
			"winner":    a.Winner,
			"quarter":   a.Quarter,
			"contracts": a.Contracts,
			"total_sum": a.TotalSum.String(),
			"max_value": a.MaxValue.String(),
		}
		if a.MaxValue.GreaterThan(eighty) {
			score += 15
		}
		if a.Contracts >= 5 {
			score += 10
		}
		score = capScore(score)

		desc := fmt.Sprintf("%s awarded %s %d contracts in %s summing %s MKD, each below the %s threshold",
			a.Entity, a.Winner, a.Contracts, a.Quarter, a.TotalSum.StringFixed(0), d.cfg.SplitThreshold.StringFixed(0))
		for _, id := range a.TenderIDs {
			flags = append(flags, domain.Flag{
				TenderID:    id,
				Type:        d.Type(),
				Severity:    severityFor(score, 65, 50),
				Score:       score,
				Evidence:    evidence,
				Description: desc,
			})
		}
	}
	return flags, nil
}
