package postgres

import (
	"context"

	"procwatch/internal/domain"
)

func (db *DB) CreateRun(ctx context.Context, run domain.Run) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO analysis_runs (id, state, started_at)
        VALUES ($1, $2, $3)
    `, run.ID, string(run.State), run.StartedAt)
	return err
}

func (db *DB) FinishRun(ctx context.Context, runID string, state domain.RunState, flagCount int, errMsg string) error {
	_, err := db.Pool.Exec(ctx, `
        UPDATE analysis_runs
        SET state = $2, flag_count = $3, error = $4, finished_at = now()
        WHERE id = $1
    `, runID, string(state), flagCount, errMsg)
	return err
}
