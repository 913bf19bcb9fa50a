package detectors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
)

// rotationTenders builds n awarded tenders at one entity, cycling through the
// given winners in order, one per month.
func rotationTenders(entity string, n int, winners ...string) []domain.Tender {
	out := make([]domain.Tender, n)
	for i := range out {
		out[i] = domain.Tender{
			ID:              fmt.Sprintf("%s-%02d", entity, i),
			ProcuringEntity: entity,
			Winner:          winners[i%len(winners)],
			PublicationDate: date(2023, 1+i%12, 1),
			ActualValue:     mkd(400_000),
		}
	}
	return out
}

func TestBidRotationPeriodicPair(t *testing.T) {
	// A and B strictly alternate over 12 tenders: 55 + 20 rotation bonus.
	tenders := rotationTenders("E1", 12, "Alfa", "Beta")
	d := detectors.NewBidRotation(fakeTenders{tenders: tenders}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 12)

	f := flags[0]
	assert.Equal(t, 75.0, f.Score)
	assert.Equal(t, domain.SeverityHigh, f.Severity)
	assert.Equal(t, 2, f.Evidence["rotation_period"])
	assert.Equal(t, 2, f.Evidence["unique_winners"])
}

func TestBidRotationHighValueBonus(t *testing.T) {
	tenders := rotationTenders("E2", 12, "Alfa", "Beta", "Gama")
	for i := range tenders {
		tenders[i].ActualValue = mkd(1_000_000) // 12M total, over the 10M line
	}
	d := detectors.NewBidRotation(fakeTenders{tenders: tenders}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 12)

	// period-3 rotation plus high total value: 55+20+15
	assert.Equal(t, 90.0, flags[0].Score)
	assert.Equal(t, domain.SeverityCritical, flags[0].Severity)
	assert.Equal(t, 3, flags[0].Evidence["rotation_period"])
	assert.Equal(t, true, flags[0].Evidence["high_value"])
}

func TestBidRotationSmallPoolWithoutPeriod(t *testing.T) {
	// three winners but not in a periodic order: base 55 only
	tenders := rotationTenders("E3", 12, "Alfa", "Beta", "Gama")
	tenders[7].Winner = "Alfa" // breaks the cycle
	d := detectors.NewBidRotation(fakeTenders{tenders: tenders}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 12)
	assert.Equal(t, 55.0, flags[0].Score)
	assert.NotContains(t, flags[0].Evidence, "rotation_period")
}

func TestBidRotationIgnoresBroadOrThinMarkets(t *testing.T) {
	// nine tenders: under the volume floor
	thin := rotationTenders("E4", 9, "Alfa", "Beta")
	// twelve tenders split across six winners: pool too broad
	broad := rotationTenders("E5", 12, "A", "B", "C", "D", "E", "F")
	// a single repeat winner is RepeatWinner territory, not rotation
	mono := rotationTenders("E6", 12, "Alfa")

	all := append(append(thin, broad...), mono...)
	d := detectors.NewBidRotation(fakeTenders{tenders: all}, detectors.DefaultThresholds())
	flags, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flags)
}
