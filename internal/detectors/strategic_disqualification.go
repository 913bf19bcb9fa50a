package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// StrategicDisqualification flags tenders decided by eliminating the
// competition: either every non-winning bidder was disqualified, or the
// lowest bid was disqualified in a price-only evaluation. The two sub-rules
// are independent; the stronger one wins.
type StrategicDisqualification struct {
	tenders ports.TenderReader
	bids    ports.BidReader
}

func NewStrategicDisqualification(tenders ports.TenderReader, bids ports.BidReader) *StrategicDisqualification {
	return &StrategicDisqualification{tenders: tenders, bids: bids}
}

func (d *StrategicDisqualification) Name() string          { return string(d.Type()) }
func (d *StrategicDisqualification) Type() domain.FlagType { return domain.FlagStrategicDisqual }

func (d *StrategicDisqualification) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategic disqualification: list tenders: %w", err)
	}
	bids, err := d.bids.ListBids(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategic disqualification: list bids: %w", err)
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

		var score float64
		var reason string
		evidence := map[string]any{"bid_count": len(tb)}

		if allLosersDisqualified(tb) {
			score = 70
			reason = "all non-winning bidders disqualified"
			evidence["all_losers_disqualified"] = true
		} else if lowestBidDisqualified(tb) && t.PriceOnlyAward {
			score = 55
			reason = "lowest bid disqualified under price-only evaluation"
			evidence["lowest_bid_disqualified"] = true
		} else {
			continue
		}

		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 65, 50),
			Score:       score,
			Evidence:    evidence,
			Description: reason,
		})
	}
	return flags, nil
}

func allLosersDisqualified(bids []domain.Bid) bool {
	hasWinner, losers, disqualified := false, 0, 0
	for _, b := range bids {
		if b.IsWinner {
			hasWinner = true
			continue
		}
		losers++
		if b.Disqualified {
			disqualified++
		}
	}
	return hasWinner && losers > 0 && losers == disqualified
}

func lowestBidDisqualified(bids []domain.Bid) bool {
	lowest := -1
	for i, b := range bids {
		if lowest < 0 || b.Amount.LessThan(bids[lowest].Amount) {
			lowest = i
		}
	}
	return lowest >= 0 && bids[lowest].Disqualified
}
