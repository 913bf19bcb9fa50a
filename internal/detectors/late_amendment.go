package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// LateAmendment flags tenders amended right before the submission deadline,
// or after it had already passed.
type LateAmendment struct {
	tenders ports.TenderReader
}

func NewLateAmendment(tenders ports.TenderReader) *LateAmendment {
	return &LateAmendment{tenders: tenders}
}

func (d *LateAmendment) Name() string          { return string(d.Type()) }
func (d *LateAmendment) Type() domain.FlagType { return domain.FlagLateAmendment }

func (d *LateAmendment) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("late amendment: list tenders: %w", err)
	}

	var flags []domain.Flag
	for _, t := range tenders {
		if t.LastAmendmentAt == nil || t.ClosingDate == nil {
			continue
		}
		daysBefore := daysBetween(*t.LastAmendmentAt, *t.ClosingDate)
		afterClosing := t.LastAmendmentAt.After(*t.ClosingDate)
		if !afterClosing && daysBefore > 3 {
			continue
		}

		score := 45.0
		evidence := map[string]any{
			"last_amendment": t.LastAmendmentAt.Format("2006-01-02"),
			"closing_date":   t.ClosingDate.Format("2006-01-02"),
		}
		if afterClosing {
			score += 25
			evidence["after_closing"] = true
		}
		if t.NumBidders == 1 {
			score += 15
			evidence["single_bidder"] = true
		}
		score = capScore(score)

		desc := fmt.Sprintf("last amendment %d days before closing", daysBefore)
		if afterClosing {
			desc = "tender amended after the closing date"
		}
		flags = append(flags, domain.Flag{
			TenderID:    t.ID,
			Type:        d.Type(),
			Severity:    severityFor(score, 60, 45),
			Score:       score,
			Evidence:    evidence,
			Description: desc,
		})
	}
	return flags, nil
}
