package analyzer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
	"procwatch/internal/ports"
	"procwatch/internal/scoring"
	"procwatch/internal/services/analyzer"
)

// memStore implements analyzer.Store in memory. Error fields inject failures
// into individual read paths; gate, when set, blocks ListTenders until closed.
type memStore struct {
	mu sync.Mutex

	tenders   []domain.Tender
	bids      []domain.Bid
	shares    []ports.EntityWinnerShare
	identical []ports.IdenticalBidGroup
	quarters  []ports.QuarterlyAward
	reviews   []domain.FlagReview

	sharesErr error
	gate      chan struct{}
	entered   chan struct{}
	enterOnce sync.Once

	flags  []domain.Flag
	scores []domain.RiskScore
	runs   map[string]domain.RunState
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]domain.RunState)}
}

func (m *memStore) ListTenders(ctx context.Context) ([]domain.Tender, error) {
	if m.gate != nil {
		m.enterOnce.Do(func() { close(m.entered) })
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.tenders, nil
}

func (m *memStore) ListBids(context.Context) ([]domain.Bid, error) { return m.bids, nil }

func (m *memStore) EntityWinnerShares(context.Context, int) ([]ports.EntityWinnerShare, error) {
	return m.shares, m.sharesErr
}

func (m *memStore) IdenticalBidGroups(context.Context) ([]ports.IdenticalBidGroup, error) {
	return m.identical, nil
}

func (m *memStore) QuarterlyAwards(context.Context, decimal.Decimal) ([]ports.QuarterlyAward, error) {
	return m.quarters, nil
}

func (m *memStore) ReplaceAll(_ context.Context, flags []domain.Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = flags
	m.scores = nil
	return nil
}

func (m *memStore) ListFlags(context.Context) ([]domain.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags, nil
}

func (m *memStore) ListFlagsByTender(_ context.Context, tenderID string) ([]domain.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Flag
	for _, f := range m.flags {
		if f.TenderID == tenderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) UpsertScores(_ context.Context, scores []domain.RiskScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = scores
	return nil
}

func (m *memStore) ByTender(_ context.Context, tenderID string) (domain.RiskScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scores {
		if s.TenderID == tenderID {
			return s, nil
		}
	}
	return domain.RiskScore{}, ports.ErrNotFound
}

func (m *memStore) AboveThreshold(_ context.Context, minScore int, level domain.RiskLevel) ([]domain.RiskScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RiskScore
	for _, s := range m.scores {
		if s.CRI >= minScore && (level == "" || s.Level == level) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) Stats(context.Context) (domain.Stats, error) { return domain.Stats{}, nil }

func (m *memStore) ListFalsePositives(context.Context) ([]domain.FlagReview, error) {
	return m.reviews, nil
}

func (m *memStore) SaveReview(_ context.Context, r domain.FlagReview) error {
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *memStore) CreateRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run.State
	return nil
}

func (m *memStore) FinishRun(_ context.Context, runID string, state domain.RunState, _ int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = state
	return nil
}

func newService(store *memStore) *analyzer.Service {
	return analyzer.New(store, scoring.New(nil), detectors.DefaultThresholds(), nil, nil, 4)
}

func mkd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// cartelData builds ten tenders where Pobednik wins every time and Statist
// bids and loses every time. Clustering flags the pair on each tender; the
// professional-loser detector should pick the pair up through the run barrier
// and apply its cluster bonus.
func cartelData(store *memStore) {
	for _, id := range []string{"T-00", "T-01", "T-02", "T-03", "T-04", "T-05", "T-06", "T-07", "T-08", "T-09"} {
		store.tenders = append(store.tenders, domain.Tender{
			ID: id, ProcuringEntity: "Opstina K", Winner: "Pobednik", NumBidders: 2,
		})
		store.bids = append(store.bids,
			domain.Bid{TenderID: id, Company: "Pobednik", Amount: mkd(1_000_000), IsWinner: true},
			domain.Bid{TenderID: id, Company: "Statist", Amount: mkd(1_200_000)},
		)
	}
}

func TestRunWiresClusterPairsIntoLoserDetector(t *testing.T) {
	store := newMemStore()
	cartelData(store)
	svc := newService(store)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.FailedDetectors)
	assert.Equal(t, 10, report.DetectorCounts["bid_clustering"])
	assert.Equal(t, 10, report.DetectorCounts["professional_loser"])
	assert.Equal(t, 10, report.TendersScored)

	// cluster bonus proves the pairs crossed the barrier: 40 base would mean
	// the loser detector never saw them
	for _, f := range store.flags {
		if f.Type == domain.FlagProfessionalLoser {
			assert.Equal(t, 60.0, f.Score)
		}
	}

	// clustering 80 @1.3 and loser 60 @0.8 average to 72.4, +8 corroboration
	score, err := svc.TenderRisk(context.Background(), "T-00")
	require.NoError(t, err)
	assert.Equal(t, 80, score.CRI)
	assert.Equal(t, domain.RiskCritical, score.Level)
	assert.Len(t, score.Flags, 2)
}

func TestRunIsolatesDetectorFailure(t *testing.T) {
	store := newMemStore()
	cartelData(store)
	store.sharesErr = errors.New("aggregate query timeout")
	svc := newService(store)

	report, err := svc.Run(context.Background())
	require.NoError(t, err, "one broken detector must not fail the run")
	assert.Equal(t, []string{"repeat_winner"}, report.FailedDetectors)
	assert.Equal(t, 0, report.DetectorCounts["repeat_winner"])
	assert.Equal(t, 10, report.DetectorCounts["bid_clustering"])
	assert.NotEmpty(t, store.flags, "other detectors still persist")
}

func TestRunSkipsReviewedFalsePositives(t *testing.T) {
	store := newMemStore()
	cartelData(store)
	store.reviews = []domain.FlagReview{
		{TenderID: "T-00", Type: domain.FlagBidClustering, FalsePositive: true},
	}
	svc := newService(store)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	// the flag row survives for audit, the score ignores it
	flags, err := store.ListFlagsByTender(context.Background(), "T-00")
	require.NoError(t, err)
	types := make(map[domain.FlagType]bool)
	for _, f := range flags {
		types[f.Type] = true
	}
	assert.True(t, types[domain.FlagBidClustering])

	score, err := svc.TenderRisk(context.Background(), "T-00")
	require.NoError(t, err)
	assert.Equal(t, 1, score.FlagCount)
	assert.Equal(t, 60, score.CRI, "only the professional-loser flag remains")

	other, err := store.ByTender(context.Background(), "T-01")
	require.NoError(t, err)
	assert.Equal(t, 80, other.CRI, "other tenders unaffected")
}

func TestRunIsIdempotentOnUnchangedData(t *testing.T) {
	store := newMemStore()
	cartelData(store)
	svc := newService(store)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	firstFlags := append([]domain.Flag(nil), store.flags...)
	firstScores := append([]domain.RiskScore(nil), store.scores...)

	_, err = svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstFlags, store.flags)
	require.Equal(t, len(firstScores), len(store.scores))
	for i := range firstScores {
		assert.Equal(t, firstScores[i].TenderID, store.scores[i].TenderID)
		assert.Equal(t, firstScores[i].CRI, store.scores[i].CRI)
		assert.Equal(t, firstScores[i].Level, store.scores[i].Level)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	store := newMemStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{})
	svc := newService(store)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()

	// wait until the first run is inside the detector phase
	<-store.entered
	_, second := svc.Run(context.Background())
	assert.ErrorIs(t, second, analyzer.ErrRunInProgress)

	close(store.gate)
	require.NoError(t, <-done)
}

func TestRunOnEmptyData(t *testing.T) {
	store := newMemStore()
	svc := newService(store)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.FlagCount)
	assert.Zero(t, report.TendersScored)
	assert.Empty(t, report.FailedDetectors)
	assert.Contains(t, store.runs, report.RunID)
	assert.Equal(t, domain.RunDone, store.runs[report.RunID])
}
