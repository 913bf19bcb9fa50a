package detectors_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

func TestRepeatWinner(t *testing.T) {
	agg := fakeAggregates{shares: []ports.EntityWinnerShare{
		// 12 of 14 = 85.7%: 50 + 20 (two full 10pp steps) + 20 (wins > 10)
		{Entity: "Ministry A", Winner: "Favorit DOO", Wins: 12, EntityTotal: 14,
			TenderIDs: []string{"T-1", "T-2", "T-3"}},
		// 4 of 6 = 66.7%: 50 only
		{Entity: "Ministry B", Winner: "Gradba AD", Wins: 4, EntityTotal: 6,
			TenderIDs: []string{"T-9"}},
		// exactly 60% is not over the line
		{Entity: "Ministry C", Winner: "Patishta", Wins: 6, EntityTotal: 10,
			TenderIDs: []string{"T-20"}},
		// too few awards to judge
		{Entity: "Ministry D", Winner: "Mal DOOEL", Wins: 3, EntityTotal: 4,
			TenderIDs: []string{"T-30"}},
	}}

	flags, err := detectors.NewRepeatWinner(agg).Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 4) // one flag per tender in the dominant shares

	byTender := flagsByTender(flags)
	for _, id := range []string{"T-1", "T-2", "T-3"} {
		f := byTender[id]
		assert.Equal(t, 90.0, f.Score, id)
		assert.Equal(t, domain.SeverityCritical, f.Severity, id)
		assert.Equal(t, "Favorit DOO", f.Evidence["winner"])
	}
	assert.Equal(t, 50.0, byTender["T-9"].Score)
	assert.Equal(t, domain.SeverityMedium, byTender["T-9"].Severity)
	assert.NotContains(t, byTender, "T-20")
	assert.NotContains(t, byTender, "T-30")
}

func TestRepeatWinnerPropagatesReadError(t *testing.T) {
	agg := fakeAggregates{err: errors.New("connection reset")}
	_, err := detectors.NewRepeatWinner(agg).Detect(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestIdenticalBids(t *testing.T) {
	agg := fakeAggregates{identical: []ports.IdenticalBidGroup{
		// two identical bids that also track the estimate -> 75+15
		{TenderID: "T-1", Amount: mkd(995_000), Estimate: mkd(1_000_000),
			Companies: []string{"Alfa DOO", "Beta DOO"}},
		// three-way tie, amount far from estimate -> 75
		{TenderID: "T-2", Amount: mkd(480_000), Estimate: mkd(900_000),
			Companies: []string{"Gama", "Delta", "Epsilon"}},
		// a single company cannot collude with itself
		{TenderID: "T-3", Amount: mkd(100_000), Estimate: mkd(100_000),
			Companies: []string{"Solo DOOEL"}},
	}}

	flags, err := detectors.NewIdenticalBids(agg).Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)

	byTender := flagsByTender(flags)
	assert.Equal(t, 90.0, byTender["T-1"].Score)
	assert.Equal(t, true, byTender["T-1"].Evidence["matches_estimate"])
	assert.Equal(t, 75.0, byTender["T-2"].Score)
	assert.Equal(t, domain.SeverityHigh, byTender["T-2"].Severity)
}

func TestContractSplitting(t *testing.T) {
	agg := fakeAggregates{quarters: []ports.QuarterlyAward{
		// 5 contracts summing 2.1M, largest at 900K (>80% of the 1M threshold)
		// -> 65+15+10
		{Entity: "Opstina X", Winner: "Niskogradba", Quarter: "2024Q2",
			Contracts: 5, TotalSum: mkd(2_100_000), MaxValue: mkd(900_000),
			TenderIDs: []string{"T-1", "T-2", "T-3", "T-4", "T-5"}},
		// 3 contracts, modest sizes -> 65
		{Entity: "Opstina Y", Winner: "Hidro DOO", Quarter: "2024Q2",
			Contracts: 3, TotalSum: mkd(1_200_000), MaxValue: mkd(500_000),
			TenderIDs: []string{"T-7", "T-8", "T-9"}},
		// below the sum threshold: routine repeat business
		{Entity: "Opstina Z", Winner: "Mebel", Quarter: "2024Q3",
			Contracts: 4, TotalSum: mkd(800_000), MaxValue: mkd(300_000),
			TenderIDs: []string{"T-11"}},
	}}

	flags, err := detectors.NewContractSplitting(agg, detectors.DefaultThresholds()).Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 8)

	byTender := flagsByTender(flags)
	assert.Equal(t, 90.0, byTender["T-1"].Score)
	assert.Equal(t, domain.SeverityCritical, byTender["T-1"].Severity)
	assert.Equal(t, "2024Q2", byTender["T-1"].Evidence["quarter"])
	assert.Equal(t, 65.0, byTender["T-7"].Score)
	assert.Equal(t, domain.SeverityHigh, byTender["T-7"].Severity)
	assert.NotContains(t, byTender, "T-11")
}
