package schedule

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"procwatch/internal/ports"
	"procwatch/internal/services/analyzer"
)

// Runner triggers analyzer runs on a cron schedule in serve mode. The
// analyzer serializes itself, so an overlapping tick simply logs and skips.
type Runner struct {
	analyzer ports.Analyzer
	log      *zap.Logger
	cron     *cron.Cron
}

func New(a ports.Analyzer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{analyzer: a, log: log, cron: cron.New()}
}

// Start registers the schedule and begins ticking. It returns an error for an
// invalid cron expression; runs themselves never stop the scheduler.
func (r *Runner) Start(ctx context.Context, spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		report, err := r.analyzer.Run(ctx)
		if errors.Is(err, analyzer.ErrRunInProgress) {
			r.log.Info("scheduled run skipped, previous run still in flight")
			return
		}
		if err != nil {
			r.log.Error("scheduled run failed", zap.Error(err))
			return
		}
		r.log.Info("scheduled run finished",
			zap.String("run_id", report.RunID),
			zap.Int("flags", report.FlagCount),
			zap.Int("tenders_scored", report.TendersScored))
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	go func() {
		<-ctx.Done()
		r.cron.Stop()
	}()
	return nil
}
