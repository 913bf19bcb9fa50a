package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// ThresholdManipulation flags tenders priced just under a statutory
// procurement threshold. Estimates within 5% below a limit suggest the value
// was chosen to dodge the stricter procedure above it.
type ThresholdManipulation struct {
	tenders ports.TenderReader
	cfg     Thresholds
}

func NewThresholdManipulation(tenders ports.TenderReader, cfg Thresholds) *ThresholdManipulation {
	return &ThresholdManipulation{tenders: tenders, cfg: cfg}
}

func (d *ThresholdManipulation) Name() string          { return string(d.Type()) }
func (d *ThresholdManipulation) Type() domain.FlagType { return domain.FlagThresholdManip }

func (d *ThresholdManipulation) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("threshold manipulation: list tenders: %w", err)
	}

	// per-entity count of near-threshold estimates, for the repeat bonus
	nearCount := make(map[string]int)
	near := make(map[string]string) // tender id -> threshold it crowds
	for _, t := range tenders {
		for _, limit := range d.cfg.Statutory {
			if withinPctBelow(t.EstimatedValue, limit, 5) {
				nearCount[t.ProcuringEntity]++
				near[t.ID] = limit.StringFixed(0)
				break
			}
		}
	}

	var flags []domain.Flag
	for _, t := range tenders {
		limit, ok := near[t.ID]
		if !ok {
			continue
		}

		score := 35.0
		evidence := map[string]any{
			"estimated_value": t.EstimatedValue.String(),
			"threshold":       limit,
		}
		if nearCount[t.ProcuringEntity] >= 3 {
			score += 15
			evidence["entity_repeats"] = nearCount[t.ProcuringEntity]
		}
		if t.NumBidders == 1 || NormalizeProcedure(t.ProcedureType) == ProcedureNegotiatedNoPub {
			score += 20
			evidence["non_competitive"] = true
		}
		score = capScore(score)

		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 60, 45),
			Score:       score,
			Evidence:    evidence,
			Description: fmt.Sprintf("estimate %s MKD sits within 5%% below the %s threshold", t.EstimatedValue.StringFixed(0), limit),
		})
	}
	return flags, nil
}
