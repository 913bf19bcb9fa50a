package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// ProcedureType flags non-competitive procedure choices. Labels that fail to
// normalize are excluded from scoring entirely rather than guessed at.
type ProcedureType struct {
	tenders ports.TenderReader
	cfg     Thresholds
}

func NewProcedureType(tenders ports.TenderReader, cfg Thresholds) *ProcedureType {
	return &ProcedureType{tenders: tenders, cfg: cfg}
}

func (d *ProcedureType) Name() string          { return string(d.Type()) }
func (d *ProcedureType) Type() domain.FlagType { return domain.FlagProcedureType }

func (d *ProcedureType) Detect(ctx context.Context) ([]domain.Flag, error) {
	tenders, err := d.tenders.ListTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("procedure type: list tenders: %w", err)
	}

	var flags []domain.Flag
	for _, t := range tenders {
		proc := NormalizeProcedure(t.ProcedureType)

		var score float64
		var reason string
		switch {
		case proc == ProcedureNegotiatedNoPub:
			score, reason = 60, "negotiated procedure without publication"
		case proc == ProcedureLowValue && t.EstimatedValue.GreaterThan(d.cfg.LowValueCeiling):
			score, reason = 45, "low-value procedure above the low-value ceiling"
		case proc == ProcedureQualification:
			score, reason = 35, "qualification system procedure"
		default:
			continue
		}

		flags = append(flags, domain.Flag{
			TenderID: t.ID,
			Type:     d.Type(),
			Severity: severityFor(score, 60, 45),
			Score:    score,
			Evidence: map[string]any{
				"procedure_raw":       t.ProcedureType,
				"procedure_canonical": string(proc),
				"estimated_value":     t.EstimatedValue.String(),
			},
			Description: reason,
		})
	}
	return flags, nil
}
