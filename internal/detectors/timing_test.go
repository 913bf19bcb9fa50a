package detectors_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
)

func TestShortDeadlineBands(t *testing.T) {
	tenders := []domain.Tender{
		// 5 days open: below P25 and P10 -> 35+25
		{ID: "T-1", PublicationDate: date(2024, 3, 1), ClosingDate: date(2024, 3, 6), NumBidders: 3},
		// 2 days open, single bidder -> 35+25+30+20 capped at 100
		{ID: "T-2", PublicationDate: date(2024, 3, 1), ClosingDate: date(2024, 3, 3), NumBidders: 1},
		// 10 days open: fine
		{ID: "T-3", PublicationDate: date(2024, 3, 1), ClosingDate: date(2024, 3, 11), NumBidders: 2},
		// missing closing date: skipped, not an error
		{ID: "T-4", PublicationDate: date(2024, 3, 1), NumBidders: 1},
	}
	d := detectors.NewShortDeadline(fakeTenders{tenders: tenders}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)

	byTender := flagsByTender(flags)
	assert.Equal(t, 60.0, byTender["T-1"].Score)
	assert.Equal(t, domain.SeverityHigh, byTender["T-1"].Severity)
	assert.Equal(t, 100.0, byTender["T-2"].Score)
	assert.Equal(t, domain.SeverityCritical, byTender["T-2"].Severity)
}

func TestShortDecision(t *testing.T) {
	tenders := []domain.Tender{
		// signed the next day, single bidder -> 45+20+15
		{ID: "T-1", ClosingDate: date(2024, 5, 10), SigningDate: date(2024, 5, 11), NumBidders: 1},
		// two days -> 45
		{ID: "T-2", ClosingDate: date(2024, 5, 10), SigningDate: date(2024, 5, 12), NumBidders: 4},
		// a week later: fine
		{ID: "T-3", ClosingDate: date(2024, 5, 10), SigningDate: date(2024, 5, 17), NumBidders: 2},
		// no signing date: skipped
		{ID: "T-4", ClosingDate: date(2024, 5, 10)},
	}
	d := detectors.NewShortDecision(fakeTenders{tenders: tenders})
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)

	byTender := flagsByTender(flags)
	assert.Equal(t, 80.0, byTender["T-1"].Score)
	assert.Equal(t, domain.SeverityCritical, byTender["T-1"].Severity)
	assert.Equal(t, 45.0, byTender["T-2"].Score)
	assert.Equal(t, domain.SeverityMedium, byTender["T-2"].Severity)
}

func TestLateAmendment(t *testing.T) {
	tenders := []domain.Tender{
		// amended two days before closing -> 45
		{ID: "T-1", ClosingDate: date(2024, 4, 10), LastAmendmentAt: date(2024, 4, 8), NumBidders: 3},
		// amended after closing, single bidder -> 45+25+15
		{ID: "T-2", ClosingDate: date(2024, 4, 10), LastAmendmentAt: date(2024, 4, 12), NumBidders: 1},
		// amended a month before: fine
		{ID: "T-3", ClosingDate: date(2024, 4, 10), LastAmendmentAt: date(2024, 3, 10), NumBidders: 2},
	}
	d := detectors.NewLateAmendment(fakeTenders{tenders: tenders})
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)

	byTender := flagsByTender(flags)
	assert.Equal(t, 45.0, byTender["T-1"].Score)
	assert.Equal(t, 85.0, byTender["T-2"].Score)
	assert.Equal(t, true, byTender["T-2"].Evidence["after_closing"])
}

func TestContractValueGrowth(t *testing.T) {
	tenders := []domain.Tender{
		// 50% overrun with amendments -> 40 + 10 + 10
		{ID: "T-1", EstimatedValue: mkd(1_000_000), ActualValue: mkd(1_500_000), AmendmentCount: 2},
		// 400% overrun: growth bonus caps at 40 -> 80
		{ID: "T-2", EstimatedValue: mkd(1_000_000), ActualValue: mkd(5_000_000)},
		// 10% overrun: within tolerance
		{ID: "T-3", EstimatedValue: mkd(1_000_000), ActualValue: mkd(1_100_000)},
		// no estimate recorded: skipped
		{ID: "T-4", ActualValue: mkd(2_000_000)},
	}
	d := detectors.NewContractValueGrowth(fakeTenders{tenders: tenders})
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)

	byTender := flagsByTender(flags)
	assert.Equal(t, 60.0, byTender["T-1"].Score)
	assert.Equal(t, 80.0, byTender["T-2"].Score)
	assert.Equal(t, domain.SeverityCritical, byTender["T-2"].Severity)
}

func TestThresholdManipulation(t *testing.T) {
	tenders := []domain.Tender{
		// 4.8M sits within 5% below the 5M threshold; entity repeats 3x and
		// this one is single-bidder -> 35+15+20
		{ID: "T-1", ProcuringEntity: "E", EstimatedValue: mkd(4_800_000), NumBidders: 1},
		{ID: "T-2", ProcuringEntity: "E", EstimatedValue: mkd(975_000), NumBidders: 4},
		{ID: "T-3", ProcuringEntity: "E", EstimatedValue: mkd(1_950_000), NumBidders: 3},
		// far from every threshold
		{ID: "T-4", ProcuringEntity: "F", EstimatedValue: mkd(3_000_000), NumBidders: 2},
	}
	d := detectors.NewThresholdManipulation(fakeTenders{tenders: tenders}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 3)

	byTender := flagsByTender(flags)
	assert.Equal(t, 70.0, byTender["T-1"].Score)
	assert.Equal(t, "5000000", byTender["T-1"].Evidence["threshold"])
	assert.Equal(t, 50.0, byTender["T-2"].Score) // repeats bonus only
	assert.NotContains(t, byTender, "T-4")
}
