package scoring

import "procwatch/internal/domain"

// Weights maps each flag type to its reliability weight. Weights reflect the
// empirical precision of the indicator: near-certain signals like identical
// bids count more than noisy ones like professional losers.
type Weights map[domain.FlagType]float64

// DefaultWeights returns the production weight table. Callers must treat the
// result as their own copy; the table itself is never mutated after startup.
func DefaultWeights() Weights {
	return Weights{
		domain.FlagSingleBidder:        1.0,
		domain.FlagRepeatWinner:        1.2,
		domain.FlagPriceAnomaly:        1.1,
		domain.FlagBidClustering:       1.3,
		domain.FlagShortDeadline:       0.9,
		domain.FlagProcedureType:       1.0,
		domain.FlagIdenticalBids:       1.5,
		domain.FlagProfessionalLoser:   0.8,
		domain.FlagContractSplitting:   1.2,
		domain.FlagShortDecision:       0.9,
		domain.FlagStrategicDisqual:    1.4,
		domain.FlagContractValueGrowth: 1.0,
		domain.FlagBidRotation:         1.3,
		domain.FlagThresholdManip:      1.1,
		domain.FlagLateAmendment:       0.9,
	}
}

func (w Weights) weightFor(t domain.FlagType) float64 {
	if v, ok := w[t]; ok && v > 0 {
		return v
	}
	return 1.0
}
