package detectors

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// ContractValueGrowth flags contracts whose final value overran the estimate
// by more than 20%.
type ContractValueGrowth struct {
	tenders ports.TenderReader
}

func NewContractValueGrowth(tenders ports.TenderReader) *ContractValueGrowth {
	return &ContractValueGrowth{tenders: tenders}
}

func (d *ContractValueGrowth) Name() string          { return string(d.Type()) }
func (d *ContractValueGrowth) Type() domain.FlagType { return domain.FlagContractValueGrowth }

func (d *ContractValueGrowth) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract value growth: list tenders: %w", err)
	}

	oneTwenty := decimal.NewFromFloat(1.2)

	var flags []domain.Flag
	for _, t := range tenders {
		if t.EstimatedValue.IsZero() || t.ActualValue.IsZero() {
			continue
		}
		if !t.ActualValue.GreaterThan(t.EstimatedValue.Mul(oneTwenty)) {
			continue
		}
		overrunPct := t.ActualValue.Sub(t.EstimatedValue).
			Div(t.EstimatedValue).Mul(decimal.NewFromInt(100)).InexactFloat64()

		score := 40 + min(40, overrunPct/5)
		evidence := map[string]any{
			"estimated_value": t.EstimatedValue.String(),
			"actual_value":    t.ActualValue.String(),
			"overrun_pct":     overrunPct,
		}
		if t.AmendmentCount > 0 {
			score += 10
			evidence["amendments"] = t.AmendmentCount
		}
		score = capScore(score)

		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 60, 45),
			Score:       score,
			Evidence:    evidence,
			Description: fmt.Sprintf("final value %.0f%% over estimate", overrunPct),
		})
	}
	return flags, nil
}
