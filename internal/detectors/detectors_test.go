package detectors_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// in-memory fakes for the reader ports

type fakeTenders struct {
	tenders []domain.Tender
	err     error
}

func (f fakeTenders) ListTenders(context.Context) ([]domain.Tender, error) {
	return f.tenders, f.err
}

type fakeBids struct {
	bids []domain.Bid
	err  error
}

func (f fakeBids) ListBids(context.Context) ([]domain.Bid, error) {
	return f.bids, f.err
}

type fakeAggregates struct {
	shares    []ports.EntityWinnerShare
	identical []ports.IdenticalBidGroup
	quarters  []ports.QuarterlyAward
	err       error
}

func (f fakeAggregates) EntityWinnerShares(context.Context, int) ([]ports.EntityWinnerShare, error) {
	return f.shares, f.err
}

func (f fakeAggregates) IdenticalBidGroups(context.Context) ([]ports.IdenticalBidGroup, error) {
	return f.identical, f.err
}

func (f fakeAggregates) QuarterlyAwards(context.Context, decimal.Decimal) ([]ports.QuarterlyAward, error) {
	return f.quarters, f.err
}

type staticPairs []detectors.ClusterPair

func (p staticPairs) Pairs(context.Context) ([]detectors.ClusterPair, error) {
	return p, nil
}

func date(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func mkd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// flagsByTender indexes flags for assertions.
func flagsByTender(flags []domain.Flag) map[string]domain.Flag {
	out := make(map[string]domain.Flag)
	for _, f := range flags {
		out[f.TenderID] = f
	}
	return out
}
