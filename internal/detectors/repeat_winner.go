package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// repeatWinnerMinSamples is the minimum number of awarded tenders an entity
// needs before win shares are meaningful.
const repeatWinnerMinSamples = 5

// RepeatWinner flags entities where one company takes more than 60% of the
// awards.
type RepeatWinner struct {
	agg ports.AggregateReader
}

func NewRepeatWinner(agg ports.AggregateReader) *RepeatWinner {
	return &RepeatWinner{agg: agg}
}

func (d *RepeatWinner) Name() string          { return string(d.Type()) }
func (d *RepeatWinner) Type() domain.FlagType { return domain.FlagRepeatWinner }

func (d *RepeatWinner) Detect(ctx context.Context) ([]domain.Flag, error) {
	shares, err := d.agg.EntityWinnerShares(ctx, repeatWinnerMinSamples)
	if err != nil {
		return nil, fmt.Errorf("repeat winner: entity shares: %w", err)
	}

	var flags []domain.Flag
	for _, s := range shares {
		if s.EntityTotal < repeatWinnerMinSamples || s.Winner == "" {
			continue
		}
		sharePct := float64(s.Wins) / float64(s.EntityTotal) * 100
		if sharePct <= 60 {
			continue
		}

		score := 50.0
		// +10 per full 10 percentage points over 60%.
		score += float64(int(sharePct-60)/10) * 10
		if s.Wins > 10 {
			score += 20
		}
		score = capScore(score)

		evidence := map[string]any{
			"entity":    s.Entity,
			"winner":    s.Winner,
			"wins":      s.Wins,
			"total":     s.EntityTotal,
			"share_pct": sharePct,
		}
		desc := fmt.Sprintf("%s wins %.0f%% of tenders at %s (%d of %d)",
			s.Winner, sharePct, s.Entity, s.Wins, s.EntityTotal)

		for _, id := range s.TenderIDs {
			flags = append(flags, domain.Flag{
				TenderID:    id,
				Type:        d.Type(),
				Severity:    severityFor(score, 60, 45),
				Score:       score,
				Evidence:    evidence,
				Description: desc,
			})
		}
	}
	return flags, nil
}
