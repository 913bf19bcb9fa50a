package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"procwatch/internal/detectors"
	"procwatch/internal/domain"
	"procwatch/internal/metrics"
	"procwatch/internal/ports"
	"procwatch/internal/scoring"
)

// ErrRunInProgress is returned when a run is requested while another one
// holds the analyzer lock.
var ErrRunInProgress = errors.New("analyzer run already in progress")

// Store is the persistence surface the analyzer needs. The postgres adapter
// implements all of it on one pool.
type Store interface {
	ports.TenderReader
	ports.BidReader
	ports.AggregateReader
	ports.FlagRepository
	ports.ScoreRepository
	ports.ReviewRepository
	ports.RunRepository
}

// Service orchestrates the detection pipeline: run every detector, replace
// the flag set, recompute per-tender risk scores, answer queries.
type Service struct {
	store   Store
	scorer  *scoring.Scorer
	cfg     detectors.Thresholds
	log     *zap.Logger
	metrics *metrics.Metrics
	workers int

	mu      sync.Mutex
	running bool
}

func New(store Store, scorer *scoring.Scorer, cfg detectors.Thresholds, log *zap.Logger, m *metrics.Metrics, workers int) *Service {
	if workers < 1 {
		workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, scorer: scorer, cfg: cfg, log: log, metrics: m, workers: workers}
}

// pairBarrier hands the clustering detector's pairs to the professional-loser
// detector within one run. Pairs blocks until the clustering phase publishes
// or the context dies.
type pairBarrier struct {
	done  chan struct{}
	pairs []detectors.ClusterPair
}

func newPairBarrier() *pairBarrier {
	return &pairBarrier{done: make(chan struct{})}
}

func (b *pairBarrier) publish(pairs []detectors.ClusterPair) {
	b.pairs = pairs
	close(b.done)
}

func (b *pairBarrier) Pairs(ctx context.Context) ([]detectors.ClusterPair, error) {
	select {
	case <-b.done:
		return b.pairs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run executes the full pipeline. Detector failures are isolated and only
// reduce the flag count; persistence failures abort the run. Runs are
// serialized; a concurrent call returns ErrRunInProgress.
func (s *Service) Run(ctx context.Context) (domain.RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.RunReport{}, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now()
	run := domain.Run{
		ID:        uuid.NewString(),
		State:     domain.RunRunningDetectors,
		StartedAt: started,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return domain.RunReport{}, fmt.Errorf("create run: %w", err)
	}
	log := s.log.With(zap.String("run_id", run.ID))
	log.Info("analyzer run started", zap.Int("workers", s.workers))

	report := domain.RunReport{
		RunID:          run.ID,
		DetectorCounts: make(map[string]int),
	}

	flags, failed, err := s.runDetectors(ctx, log, report.DetectorCounts)
	if err != nil {
		// only context cancellation reaches here; nothing has been written
		s.finish(ctx, run.ID, domain.RunFailed, 0, err.Error(), "aborted", started)
		return report, err
	}
	report.FailedDetectors = failed
	report.FlagCount = len(flags)
	if len(failed) == len(domain.FlagTypes) {
		log.Warn("every detector failed; flag tables will be emptied")
	}

	log.Info("persisting flags", zap.Int("flags", len(flags)))
	if err := s.store.ReplaceAll(ctx, flags); err != nil {
		s.finish(ctx, run.ID, domain.RunFailed, 0, err.Error(), "failed", started)
		return report, fmt.Errorf("persist flags: %w", err)
	}

	log.Info("recomputing risk scores")
	scored, err := s.recomputeScores(ctx)
	if err != nil {
		s.finish(ctx, run.ID, domain.RunFailed, len(flags), err.Error(), "failed", started)
		return report, fmt.Errorf("recompute scores: %w", err)
	}
	report.TendersScored = scored
	report.Duration = time.Since(started)

	s.finish(ctx, run.ID, domain.RunDone, len(flags), "", "done", started)
	log.Info("analyzer run finished",
		zap.Int("flags", len(flags)),
		zap.Int("tenders_scored", scored),
		zap.Strings("failed_detectors", failed),
		zap.Duration("took", report.Duration))
	return report, nil
}

func (s *Service) finish(ctx context.Context, runID string, state domain.RunState, flagCount int, errMsg, outcome string, started time.Time) {
	s.metrics.ObserveRun(time.Since(started).Seconds(), outcome)
	// bookkeeping must outlive a canceled run context
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FinishRun(ctx, runID, state, flagCount, errMsg); err != nil {
		s.log.Warn("finish run bookkeeping failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// runDetectors fans the detectors out over a bounded pool. The clustering
// detector publishes its pairs to the barrier as soon as it finishes; the
// professional-loser detector blocks on that barrier inside its Detect. All
// detectors join before anything is persisted.
func (s *Service) runDetectors(ctx context.Context, log *zap.Logger, counts map[string]int) ([]domain.Flag, []string, error) {
	barrier := newPairBarrier()
	clustering, rest := s.buildDetectors(barrier)

	var mu sync.Mutex
	var all []domain.Flag
	var failed []string

	collect := func(d detectors.Detector, flags []domain.Flag, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = append(failed, d.Name())
			counts[d.Name()] = 0
			s.metrics.DetectorFailed(d.Name())
			log.Error("detector failed", zap.String("detector", d.Name()), zap.Error(err))
			return
		}
		counts[d.Name()] = len(flags)
		s.metrics.SetDetectorFlags(d.Name(), len(flags))
		all = append(all, flags...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	g.Go(func() error {
		flags, err := s.safeDetect(gctx, clustering)
		if err != nil {
			barrier.publish(nil)
		} else {
			barrier.publish(detectors.PairsFromFlags(flags))
		}
		collect(clustering, flags, err)
		return nil
	})
	for _, d := range rest {
		g.Go(func() error {
			flags, err := s.safeDetect(gctx, d)
			collect(d, flags, err)
			return nil
		})
	}
	// detector errors never propagate through the group, so Wait only fails
	// on context cancellation
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sortFlags(all)
	sort.Strings(failed)
	return all, failed, nil
}

// safeDetect isolates a single detector: its error or panic becomes a logged
// failure with zero flags.
func (s *Service) safeDetect(ctx context.Context, d detectors.Detector) (flags []domain.Flag, err error) {
	defer func() {
		if r := recover(); r != nil {
			flags, err = nil, fmt.Errorf("detector %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Detect(ctx)
}

func (s *Service) buildDetectors(pairs detectors.PairSource) (clustering detectors.Detector, rest []detectors.Detector) {
	clustering = detectors.NewBidderClustering(s.store)
	rest = []detectors.Detector{
		detectors.NewSingleBidder(s.store, s.cfg),
		detectors.NewRepeatWinner(s.store),
		detectors.NewPriceAnomaly(s.store, s.store),
		detectors.NewShortDeadline(s.store, s.cfg),
		detectors.NewProcedureType(s.store, s.cfg),
		detectors.NewIdenticalBids(s.store),
		detectors.NewProfessionalLoser(s.store, pairs),
		detectors.NewContractSplitting(s.store, s.cfg),
		detectors.NewShortDecision(s.store),
		detectors.NewStrategicDisqualification(s.store, s.store),
		detectors.NewContractValueGrowth(s.store),
		detectors.NewBidRotation(s.store, s.cfg),
		detectors.NewThresholdManipulation(s.store, s.cfg),
		detectors.NewLateAmendment(s.store),
	}
	return clustering, rest
}

// recomputeScores reads the freshly persisted flags back, drops anything an
// operator marked as a false positive, scores each tender, and upserts.
func (s *Service) recomputeScores(ctx context.Context) (int, error) {
	flags, err := s.store.ListFlags(ctx)
	if err != nil {
		return 0, err
	}
	reviews, err := s.store.ListFalsePositives(ctx)
	if err != nil {
		return 0, err
	}
	dismissed := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		dismissed[r.TenderID+"\x00"+string(r.Type)] = true
	}

	byTender := make(map[string][]domain.Flag)
	for _, f := range flags {
		if dismissed[f.TenderID+"\x00"+string(f.Type)] {
			continue
		}
		byTender[f.TenderID] = append(byTender[f.TenderID], f)
	}

	now := time.Now().UTC()
	scores := make([]domain.RiskScore, 0, len(byTender))
	for tenderID, tf := range byTender {
		cri, level := s.scorer.Calculate(tf)
		scores = append(scores, domain.RiskScore{
			TenderID:   tenderID,
			CRI:        cri,
			Level:      level,
			FlagCount:  len(tf),
			Flags:      tf,
			ComputedAt: now,
		})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].TenderID < scores[j].TenderID })

	if err := s.store.UpsertScores(ctx, scores); err != nil {
		return 0, err
	}
	return len(scores), nil
}

// TenderRisk returns the persisted score and flags for one tender.
func (s *Service) TenderRisk(ctx context.Context, tenderID string) (domain.RiskScore, error) {
	score, err := s.store.ByTender(ctx, tenderID)
	if err != nil {
		return domain.RiskScore{}, err
	}
	flags, err := s.store.ListFlagsByTender(ctx, tenderID)
	if err != nil {
		return domain.RiskScore{}, err
	}
	score.Flags = flags
	return score, nil
}

// Flagged lists tenders scoring at or above minScore, optionally filtered by
// risk level.
func (s *Service) Flagged(ctx context.Context, minScore int, level domain.RiskLevel) ([]domain.RiskScore, error) {
	return s.store.AboveThreshold(ctx, minScore, level)
}

// Stats returns aggregate counts over the current flag and score tables.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.Stats(ctx)
}

// sortFlags orders flags deterministically so repeated runs over unchanged
// data persist byte-identical rows.
func sortFlags(flags []domain.Flag) {
	sort.Slice(flags, func(i, j int) bool {
		a, b := flags[i], flags[j]
		if a.TenderID != b.TenderID {
			return a.TenderID < b.TenderID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Description < b.Description
	})
}
