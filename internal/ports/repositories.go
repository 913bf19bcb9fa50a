package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"procwatch/internal/domain"
)

// TenderReader lists tender snapshots for detectors.
type TenderReader interface {
	ListTenders(ctx context.Context) ([]domain.Tender, error)
}

// BidReader lists bid records for detectors.
type BidReader interface {
	ListBids(ctx context.Context) ([]domain.Bid, error)
}

// EntityWinnerShare is one (entity, winner) aggregate: how many of the
// entity's tenders that company won.
type EntityWinnerShare struct {
	Entity      string
	Winner      string
	Wins        int
	EntityTotal int
	// TenderIDs are the entity's tenders this company won.
	TenderIDs []string
}

// IdenticalBidGroup is a set of companies that submitted the exact same
// amount on one tender.
type IdenticalBidGroup struct {
	TenderID  string
	Amount    decimal.Decimal
	Companies []string
	Estimate  decimal.Decimal
}

// QuarterlyAward aggregates contracts one entity awarded one winner within a
// calendar quarter, counting only contracts below maxValue.
type QuarterlyAward struct {
	Entity    string
	Winner    string
	Quarter   string
	TenderIDs []string
	Contracts int
	TotalSum  decimal.Decimal
	MaxValue  decimal.Decimal
}

// AggregateReader serves the detectors whose trigger conditions are cheaper
// to express as SQL aggregates than as in-memory scans.
type AggregateReader interface {
	EntityWinnerShares(ctx context.Context, minSamples int) ([]EntityWinnerShare, error)
	IdenticalBidGroups(ctx context.Context) ([]IdenticalBidGroup, error)
	QuarterlyAwards(ctx context.Context, maxValue decimal.Decimal) ([]QuarterlyAward, error)
}

// FlagRepository is the write path for detector findings. ReplaceAll deletes
// every existing flag and risk score, then inserts the new set in one
// transaction; runs must not execute concurrently.
type FlagRepository interface {
	ReplaceAll(ctx context.Context, flags []domain.Flag) error
	ListFlags(ctx context.Context) ([]domain.Flag, error)
	ListFlagsByTender(ctx context.Context, tenderID string) ([]domain.Flag, error)
}

// ScoreRepository persists and queries per-tender risk scores.
type ScoreRepository interface {
	UpsertScores(ctx context.Context, scores []domain.RiskScore) error
	ByTender(ctx context.Context, tenderID string) (domain.RiskScore, error)
	AboveThreshold(ctx context.Context, minScore int, level domain.RiskLevel) ([]domain.RiskScore, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// ReviewRepository reads and writes operator review state. Reviews live in
// their own table keyed by (tender_id, flag_type) so full-replace runs never
// wipe them.
type ReviewRepository interface {
	ListFalsePositives(ctx context.Context) ([]domain.FlagReview, error)
	SaveReview(ctx context.Context, review domain.FlagReview) error
}

// RunRepository records analyzer runs for operator visibility.
type RunRepository interface {
	CreateRun(ctx context.Context, run domain.Run) error
	FinishRun(ctx context.Context, runID string, state domain.RunState, flagCount int, errMsg string) error
}
