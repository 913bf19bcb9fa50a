package ports

import (
	"context"
	"errors"

	"procwatch/internal/domain"
)

// ErrNotFound is returned by repositories for missing rows.
var ErrNotFound = errors.New("not found")

// Analyzer runs the detection pipeline and answers risk queries.
type Analyzer interface {
	Run(ctx context.Context) (domain.RunReport, error)
	TenderRisk(ctx context.Context, tenderID string) (domain.RiskScore, error)
	Flagged(ctx context.Context, minScore int, level domain.RiskLevel) ([]domain.RiskScore, error)
	Stats(ctx context.Context) (domain.Stats, error)
}
