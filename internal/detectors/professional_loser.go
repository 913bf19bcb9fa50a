package detectors

import (
	"context"
	"fmt"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

const (
	loserMinBids    = 10
	loserMaxWinRate = 0.05
)

// PairSource supplies the current run's cluster pairs. The orchestrator wires
// it behind a barrier on the bid-clustering detector; when the source fails
// or has nothing yet, the loser detector scores without the cluster bonus.
type PairSource interface {
	Pairs(ctx context.Context) ([]ClusterPair, error)
}

// ProfessionalLoser flags companies that bid constantly and almost never win,
// a pattern consistent with cover bidding. This is the one detector with a
// cross-detector dependency: membership in a bid-clustering pair with a
// dominant winner raises the score.
type ProfessionalLoser struct {
	bids  ports.BidReader
	pairs PairSource
}

func NewProfessionalLoser(bids ports.BidReader, pairs PairSource) *ProfessionalLoser {
	return &ProfessionalLoser{bids: bids, pairs: pairs}
}

func (d *ProfessionalLoser) Name() string          { return string(d.Type()) }
func (d *ProfessionalLoser) Type() domain.FlagType { return domain.FlagProfessionalLoser }

func (d *ProfessionalLoser) Detect(ctx context.Context) ([]domain.Flag, error) {
	bids, err := d.bids.ListBids(ctx)
	if err != nil {
		return nil, fmt.Errorf("professional loser: list bids: %w", err)
	}

	clustered := make(map[string]bool)
	if d.pairs != nil {
		pairs, err := d.pairs.Pairs(ctx)
		if err == nil {
			for _, p := range pairs {
				if p.DominantWinner == "" {
					continue
				}
				// the loser is the pair member that is not the dominant winner
				if p.CompanyA != p.DominantWinner {
					clustered[p.CompanyA] = true
				}
				if p.CompanyB != p.DominantWinner {
					clustered[p.CompanyB] = true
				}
			}
		}
		// a failed pair source degrades to zero cluster bonus, never an error
	}

	type record struct {
		total, wins int
		tenderIDs   []string
	}
	byCompany := make(map[string]*record)
	for _, b := range bids {
		r := byCompany[b.Company]
		if r == nil {
			r = &record{}
			byCompany[b.Company] = r
		}
		r.total++
		if b.IsWinner {
			r.wins++
		} else {
			r.tenderIDs = append(r.tenderIDs, b.TenderID)
		}
	}

	var flags []domain.Flag
	for company, r := range byCompany {
		if r.total < loserMinBids {
			continue
		}
		winRate := float64(r.wins) / float64(r.total)
		if winRate >= loserMaxWinRate {
			continue
		}

		score := 40.0
		evidence := map[string]any{
			"company":  company,
			"bids":     r.total,
			"wins":     r.wins,
			"win_rate": winRate,
		}
		if clustered[company] {
			score += 20
			evidence["in_cluster_pair"] = true
		}
		score = capScore(score)

		desc := fmt.Sprintf("%s entered %d bids and won %d (%.1f%% win rate)",
			company, r.total, r.wins, winRate*100)
		for _, id := range r.tenderIDs {
			flags = append(flags, domain.Flag{
				TenderID:    id,
				Type:        d.Type(),
				Severity:    severityFor(score, 60, 45),
				Score:       score,
				Evidence:    evidence,
				Description: desc,
			})
		}
	}
	return flags, nil
}
