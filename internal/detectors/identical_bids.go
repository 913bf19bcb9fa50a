package detectors

import (
	"context"
	"fmt"
	"strings"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// IdenticalBids flags tenders where two or more companies submitted the exact
// same amount. Byte-identical bids are a near-zero false-positive signal.
type IdenticalBids struct {
	agg ports.AggregateReader
}

func NewIdenticalBids(agg ports.AggregateReader) *IdenticalBids {
	return &IdenticalBids{agg: agg}
}

func (d *IdenticalBids) Name() string          { return string(d.Type()) }
func (d *IdenticalBids) Type() domain.FlagType { return domain.FlagIdenticalBids }

func (d *IdenticalBids) Detect(ctx context.Context) ([]domain.Flag, error) {
	groups, err := d.agg.IdenticalBidGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("identical bids: groups: %w", err)
	}

	var flags []domain.Flag
	for _, g := range groups {
		if len(g.Companies) < 2 {
			continue
		}
		score := 75.0
		evidence := map[string]any{
			"amount":    g.Amount.String(),
			"companies": g.Companies,
		}
		if withinPctOf(g.Amount, g.Estimate, 1) {
			score += 15
			evidence["matches_estimate"] = true
		}
		score = capScore(score)

		flags = append(flags, domain.Flag{
			TenderID: g.TenderID,
			Type:     d.Type(),
			Severity: severityFor(score, 65, 50),
			Score:    score,
			Evidence: evidence,
			Description: fmt.Sprintf("%d companies bid exactly %s MKD: %s",
				len(g.Companies), g.Amount.StringFixed(0), strings.Join(g.Companies, ", ")),
		})
	}
	return flags, nil
}
