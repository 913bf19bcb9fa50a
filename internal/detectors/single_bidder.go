package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// SingleBidder flags tenders that attracted exactly one bidder despite a
// non-trivial estimated value. Repeat wins by the same company at the same
// entity are counted over prior publication dates only, so re-running the
// analysis on historical data never leaks future awards into past scores.
type SingleBidder struct {
	tenders ports.TenderReader
	cfg     Thresholds
}

func NewSingleBidder(tenders ports.TenderReader, cfg Thresholds) *SingleBidder {
	return &SingleBidder{tenders: tenders, cfg: cfg}
}

func (d *SingleBidder) Name() string          { return string(d.Type()) }
func (d *SingleBidder) Type() domain.FlagType { return domain.FlagSingleBidder }

func (d *SingleBidder) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("single bidder: list tenders: %w", err)
	}

	var flags []domain.Flag
	for _, t := range tenders {
		if t.NumBidders != 1 || !t.EstimatedValue.GreaterThan(d.cfg.SingleBidderMinValue) {
			continue
		}

		score := 40.0
		evidence := map[string]any{
			"num_bidders":     1,
			"estimated_value": t.EstimatedValue.String(),
		}
		if t.EstimatedValue.GreaterThan(d.cfg.HighValue) {
			score += 20
			evidence["high_value"] = true
		}
		if prior := priorWins(tenders, t); prior >= 3 {
			score += 20
			evidence["winner_prior_wins"] = prior
		}
		score = capScore(score)

		flags = append(flags, domain.Flag{
			TenderID: t.ID,
			Type:     d.Type(),
			Severity: severityFor(score, 60, 45),
			Score:    score,
			Evidence: evidence,
			Description: fmt.Sprintf("single bidder on tender worth %s MKD at %s",
				t.EstimatedValue.StringFixed(0), t.ProcuringEntity),
		})
	}
	return flags, nil
}

// priorWins counts how many of the entity's earlier tenders the same winner
// took. Tenders without publication dates or winners are skipped.
func priorWins(tenders []domain.Tender, t domain.Tender) int {
	if t.Winner == "" || t.PublicationDate == nil {
		return 0
	}
	n := 0
	for _, other := range tenders {
		if other.ID == t.ID || other.PublicationDate == nil {
			continue
		}
		if other.ProcuringEntity == t.ProcuringEntity &&
			other.Winner == t.Winner &&
			other.PublicationDate.Before(*t.PublicationDate) {
			n++
		}
	}
	return n
}
