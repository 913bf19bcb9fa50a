package detectors

import (
	"context"
	"fmt"
	"math"
	"strings"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// PriceAnomaly flags tenders whose bid distribution looks coordinated: bids
// clustered implausibly tight, a winner far below everyone else, or a winning
// bid tracking the published estimate to within a percent. The three
// sub-conditions are independent and their bonuses add up.
type PriceAnomaly struct {
	tenders ports.TenderReader
	bids    ports.BidReader
}

func NewPriceAnomaly(tenders ports.TenderReader, bids ports.BidReader) *PriceAnomaly {
	return &PriceAnomaly{tenders: tenders, bids: bids}
}

func (d *PriceAnomaly) Name() string          { return string(d.Type()) }
func (d *PriceAnomaly) Type() domain.FlagType { return domain.FlagPriceAnomaly }

func (d *PriceAnomaly) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("price anomaly: list tenders: %w", err)
	}
	bids, err := d.bids.ListBids(ctx)
	if err != nil {
		return nil, fmt.Errorf("price anomaly: list bids: %w", err)
	}

	byTender := make(map[string][]domain.Bid)
	for _, b := range bids {
		byTender[b.TenderID] = append(byTender[b.TenderID], b)
	}

	var flags []domain.Flag
	for _, t := range tenders {
		tb := byTender[t.ID]
		if len(tb) < 2 {
			continue
		}

		amounts := make([]float64, 0, len(tb))
		var winnerAmount float64
		var hasWinner bool
		for _, b := range tb {
			v := b.Amount.InexactFloat64()
			amounts = append(amounts, v)
			if b.IsWinner {
				winnerAmount = v
				hasWinner = true
			}
		}
		mean, sd := meanStddev(amounts)
		if mean <= 0 {
			continue
		}

		score := 0.0
		evidence := map[string]any{"bid_count": len(tb)}
		var reasons []string

		if cv := sd / mean; cv < 0.05 {
			score += 25
			evidence["coefficient_of_variation"] = cv
			reasons = append(reasons, "bids clustered within 5% variation")
		}
		if hasWinner && sd > 0 && winnerAmount < mean-2*sd {
			score += 20
			evidence["winner_below_mean_sd"] = (mean - winnerAmount) / sd
			reasons = append(reasons, "winning bid more than 2 sigma below mean")
		}
		if hasWinner {
			for _, b := range tb {
				if b.IsWinner && withinPctOf(b.Amount, t.EstimatedValue, 1) {
					score += 15
					evidence["winner_within_1pct_of_estimate"] = true
					reasons = append(reasons, "winning bid within 1% of estimate")
					break
				}
			}
		}
		if score == 0 {
			continue
		}
		score = capScore(45 + score)

		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 60, 45),
			Score:       score,
			Evidence:    evidence,
			Description: fmt.Sprintf("price anomaly: %s", strings.Join(reasons, "; ")),
		})
	}
	return flags, nil
}

func meanStddev(xs []float64) (mean, sd float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	sd = math.Sqrt(ss / float64(len(xs)))
	return mean, sd
}
