package detectors

import (
	"context"
	"fmt"
	"sort"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// clusteringMinCoOccurrences is the minimum number of shared tenders before a
// pair of companies is considered a cluster candidate.
const clusteringMinCoOccurrences = 5

// ClusterPair is a pair of companies that almost always bid together.
// DominantWinner is set when one of them wins most of the joint tenders.
type ClusterPair struct {
	CompanyA       string
	CompanyB       string
	CoOccurrences  int
	DominantWinner string
}

// BidderClustering flags pairs of companies that co-bid in more than 70% of
// each one's tenders. Several pairs may cover the same tender; the scorer's
// max-per-type rule collapses them.
type BidderClustering struct {
	bids ports.BidReader
}

func NewBidderClustering(bids ports.BidReader) *BidderClustering {
	return &BidderClustering{bids: bids}
}

func (d *BidderClustering) Name() string          { return string(d.Type()) }
func (d *BidderClustering) Type() domain.FlagType { return domain.FlagBidClustering }

func (d *BidderClustering) Detect(ctx context.Context) ([]domain.Flag, error) {
	bids, err := d.bids.ListBids(ctx)
	if err != nil {
		return nil, fmt.Errorf("bid clustering: list bids: %w", err)
	}

	tendersByCompany := make(map[string]map[string]bool)
	winnersByTender := make(map[string]string)
	for _, b := range bids {
		set := tendersByCompany[b.Company]
		if set == nil {
			set = make(map[string]bool)
			tendersByCompany[b.Company] = set
		}
		set[b.TenderID] = true
		if b.IsWinner {
			winnersByTender[b.TenderID] = b.Company
		}
	}

	companies := make([]string, 0, len(tendersByCompany))
	for c := range tendersByCompany {
		companies = append(companies, c)
	}
	sort.Strings(companies)

	var flags []domain.Flag
	for i := 0; i < len(companies); i++ {
		for j := i + 1; j < len(companies); j++ {
			a, b := companies[i], companies[j]
			joint := intersect(tendersByCompany[a], tendersByCompany[b])
			if len(joint) < clusteringMinCoOccurrences {
				continue
			}
			ratioA := float64(len(joint)) / float64(len(tendersByCompany[a]))
			ratioB := float64(len(joint)) / float64(len(tendersByCompany[b]))
			if ratioA <= 0.7 || ratioB <= 0.7 {
				continue
			}

			score := 60.0
			winCounts := map[string]int{}
			for _, id := range joint {
				if w := winnersByTender[id]; w == a || w == b {
					winCounts[w]++
				}
			}
			dominant := ""
			for w, n := range winCounts {
				if float64(n)/float64(len(joint)) > 0.8 {
					dominant = w
				}
			}
			if dominant != "" {
				score += 20
			}
			score = capScore(score)

			evidence := map[string]any{
				"company_a":       a,
				"company_b":       b,
				"co_occurrences":  len(joint),
				"ratio_a":         ratioA,
				"ratio_b":         ratioB,
				"dominant_winner": dominant,
			}
			desc := fmt.Sprintf("%s and %s co-bid on %d tenders (%.0f%% / %.0f%% of their bids)",
				a, b, len(joint), ratioA*100, ratioB*100)

			for _, id := range joint {
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
	}
	return flags, nil
}

// PairsFromFlags reconstructs cluster pairs from persisted bid_clustering
// flags. The professional-loser detector consumes these through the
// orchestrator's barrier; flags of any other type are ignored.
func PairsFromFlags(flags []domain.Flag) []ClusterPair {
	seen := make(map[string]bool)
	var pairs []ClusterPair
	for _, f := range flags {
		if f.Type != domain.FlagBidClustering {
			continue
		}
		a, _ := f.Evidence["company_a"].(string)
		b, _ := f.Evidence["company_b"].(string)
		if a == "" || b == "" {
			continue
		}
		key := a + "\x00" + b
		if seen[key] {
			continue
		}
		seen[key] = true
		co, _ := f.Evidence["co_occurrences"].(int)
		dominant, _ := f.Evidence["dominant_winner"].(string)
		pairs = append(pairs, ClusterPair{
			CompanyA:       a,
			CompanyB:       b,
			CoOccurrences:  co,
			DominantWinner: dominant,
		})
	}
	return pairs
}

func intersect(a, b map[string]bool) []string {
	var out []string
	for id := range a {
		if b[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
