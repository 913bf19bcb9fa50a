package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// ShortDeadline flags tenders whose submission window is shorter than the
// empirical 25th percentile. Tenders missing either date are skipped.
type ShortDeadline struct {
	tenders ports.TenderReader
	cfg     Thresholds
}

func NewShortDeadline(tenders ports.TenderReader, cfg Thresholds) *ShortDeadline {
	return &ShortDeadline{tenders: tenders, cfg: cfg}
}

func (d *ShortDeadline) Name() string          { return string(d.Type()) }
func (d *ShortDeadline) Type() domain.FlagType { return domain.FlagShortDeadline }

func (d *ShortDeadline) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("short deadline: list tenders: %w", err)
	}

	var flags []domain.Flag
	for _, t := range tenders {
		if t.PublicationDate == nil || t.ClosingDate == nil {
			continue
		}
		days := daysBetween(*t.PublicationDate, *t.ClosingDate)
		if days < 0 || days >= d.cfg.DeadlineP25Days {
			continue
		}

		score := 35.0
		evidence := map[string]any{"days_open": days}
		if days < d.cfg.DeadlineP10Days {
			score += 25
		}
		if days < 3 {
			score += 30
		}
		if t.NumBidders == 1 {
			score += 20
			evidence["single_bidder"] = true
		}
		score = capScore(score)

		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 60, 45),
			Score:       score,
			Evidence:    evidence,
			Description: fmt.Sprintf("submission window of %d days, below the %dth-day norm", days, d.cfg.DeadlineP25Days),
		})
	}
	return flags, nil
}
