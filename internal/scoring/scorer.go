package scoring

import (
	"math"

	"procwatch/internal/domain"
)

// corroborationBonus is added once per distinct flag type beyond the first.
// It rewards independent signals agreeing on a tender without letting one
// noisy detector dominate the index.
const corroborationBonus = 8.0

// Scorer turns the flag multiset of a single tender into a Corruption Risk
// Index. It is a pure function of its input: no I/O, no clock, no state.
type Scorer struct {
	weights Weights
}

func New(weights Weights) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Calculate computes the CRI and risk level for one tender's flags.
//
// Per flag type only the strongest flag counts, the per-type maxima are
// combined as a reliability-weighted average, and the corroboration bonus is
// added for every distinct type beyond the first. The result is rounded and
// clamped to [0,100].
func (s *Scorer) Calculate(flags []domain.Flag) (int, domain.RiskLevel) {
	if len(flags) == 0 {
		return 0, domain.RiskMinimal
	}

	maxPerType := make(map[domain.FlagType]float64)
	for _, f := range flags {
		if cur, ok := maxPerType[f.Type]; !ok || f.Score > cur {
			maxPerType[f.Type] = f.Score
		}
	}

	var weightedSum, weightSum float64
	for t, score := range maxPerType {
		w := s.weights.weightFor(t)
		weightedSum += w * score
		weightSum += w
	}
	avg := weightedSum / weightSum

	bonus := corroborationBonus * float64(len(maxPerType)-1)

	cri := int(math.Round(avg + bonus))
	if cri > 100 {
		cri = 100
	}
	if cri < 0 {
		cri = 0
	}
	return cri, LevelFor(cri)
}

// LevelFor maps a CRI to its risk level. Boundaries are inclusive: a CRI of
// exactly 80 is critical, exactly 60 is high, and so on.
func LevelFor(cri int) domain.RiskLevel {
	switch {
	case cri >= 80:
		return domain.RiskCritical
	case cri >= 60:
		return domain.RiskHigh
	case cri >= 40:
		return domain.RiskMedium
	case cri >= 20:
		return domain.RiskLow
	default:
		return domain.RiskMinimal
	}
}
