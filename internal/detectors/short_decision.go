package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// ShortDecision flags contracts signed suspiciously fast after bid closing.
// Evaluation in under three days rarely leaves room for real comparison.
type ShortDecision struct {
	tenders ports.TenderReader
}

func NewShortDecision(tenders ports.TenderReader) *ShortDecision {
	return &ShortDecision{tenders: tenders}
}

func (d *ShortDecision) Name() string          { return string(d.Type()) }
func (d *ShortDecision) Type() domain.FlagType { return domain.FlagShortDecision }

func (d *ShortDecision) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("short decision: list tenders: %w", err)
	}

	var flags []domain.Flag
	for _, t := range tenders {
		if t.ClosingDate == nil || t.SigningDate == nil {
			continue
		}
		days := daysBetween(*t.ClosingDate, *t.SigningDate)
		if days < 0 || days >= 3 {
			continue
		}

		score := 45.0
		evidence := map[string]any{"decision_days": days}
		if days <= 1 {
			score += 20
		}
		if t.NumBidders == 1 {
			score += 15
			evidence["single_bidder"] = true
		}
		score = capScore(score)

		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 60, 45),
			Score:       score,
			Evidence:    evidence,
			Description: fmt.Sprintf("contract signed %d days after closing", days),
		})
	}
	return flags, nil
}
