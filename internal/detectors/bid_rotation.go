package detectors

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// BidRotation flags entities whose awards rotate between a small stable set
// of winners. A strictly periodic winner sequence (period 2 or 3) is the
// strongest form of the pattern.
type BidRotation struct {
	tenders ports.TenderReader
	cfg     Thresholds
}

func NewBidRotation(tenders ports.TenderReader, cfg Thresholds) *BidRotation {
	return &BidRotation{tenders: tenders, cfg: cfg}
}

func (d *BidRotation) Name() string          { return string(d.Type()) }
func (d *BidRotation) Type() domain.FlagType { return domain.FlagBidRotation }

func (d *BidRotation) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("bid rotation: list tenders: %w", err)
	}

	byEntity := make(map[string][]domain.Tender)
	for _, t := range tenders {
		if t.Winner == "" || t.PublicationDate == nil {
			continue
		}
		byEntity[t.ProcuringEntity] = append(byEntity[t.ProcuringEntity], t)
	}

	var flags []domain.Flag
	for entity, ts := range byEntity {
		if len(ts) < 10 {
			continue
		}
		sort.Slice(ts, func(i, j int) bool {
			if ts[i].PublicationDate.Equal(*ts[j].PublicationDate) {
				return ts[i].ID < ts[j].ID
			}
			return ts[i].PublicationDate.Before(*ts[j].PublicationDate)
		})

		winners := make([]string, len(ts))
		unique := make(map[string]bool)
		total := decimal.Zero
		for i, t := range ts {
			winners[i] = t.Winner
			unique[t.Winner] = true
			total = total.Add(t.ActualValue)
		}
		if len(unique) < 2 || len(unique) > 5 {
			continue
		}

		score := 55.0
		evidence := map[string]any{
			"entity":         entity,
			"tenders":        len(ts),
			"unique_winners": len(unique),
			"total_value":    total.String(),
		}
		rotating, period := periodicSequence(winners)
		if rotating {
			score += 20
			evidence["rotation_period"] = period
		}
		if total.GreaterThan(d.cfg.RotationHighValue) {
			score += 15
			evidence["high_value"] = true
		}
		score = capScore(score)

		desc := fmt.Sprintf("%d winners alternate across %d tenders at %s",
			len(unique), len(ts), entity)
		for _, t := range ts {
			flags = append(flags, domain.Flag{
				TenderID:    t.ID,
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

// periodicSequence reports whether the winner sequence repeats with period 2
// or 3 and returns the matching period.
func periodicSequence(seq []string) (bool, int) {
	for _, k := range []int{2, 3} {
		if len(seq) <= k {
			continue
		}
		match := true
		for i := k; i < len(seq); i++ {
			if seq[i] != seq[i-k] {
				match = false
				break
			}
		}
		if match {
			return true, k
		}
	}
	return false, 0
}
