package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"procwatch/internal/domain"
)

const insertBatchSize = 500

// ReplaceAll deletes every flag and risk score, then inserts the new flag set
// in one transaction. A transaction-scoped advisory lock keeps concurrent
// runs from interleaving their deletes and inserts; losing the lock race
// returns ErrLocked rather than blocking.
func (db *DB) ReplaceAll(ctx context.Context, flags []domain.Flag) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var locked bool
	if err = tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, flagsLockKey).Scan(&locked); err != nil {
		return err
	}
	if !locked {
		return ErrLocked
	}

	if _, err = tx.Exec(ctx, `DELETE FROM flags`); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM risk_scores`); err != nil {
		return err
	}

	for start := 0; start < len(flags); start += insertBatchSize {
		end := min(start+insertBatchSize, len(flags))
		batch := &pgx.Batch{}
		for _, f := range flags[start:end] {
			batch.Queue(`
                INSERT INTO flags (tender_id, flag_type, severity, score, evidence, description)
                VALUES ($1, $2, $3, $4, $5, $6)
            `, f.TenderID, string(f.Type), string(f.Severity), f.Score, f.Evidence, f.Description)
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) ListFlags(ctx context.Context) ([]domain.Flag, error) {
	return db.queryFlags(ctx, `
        SELECT tender_id, flag_type, severity, score, evidence, description
        FROM flags
        ORDER BY tender_id, flag_type, score DESC, id
    `)
}

func (db *DB) ListFlagsByTender(ctx context.Context, tenderID string) ([]domain.Flag, error) {
	return db.queryFlags(ctx, `
        SELECT tender_id, flag_type, severity, score, evidence, description
        FROM flags
        WHERE tender_id = $1
        ORDER BY flag_type, score DESC, id
    `, tenderID)
}

func (db *DB) queryFlags(ctx context.Context, sql string, args ...any) ([]domain.Flag, error) {
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Flag
	for rows.Next() {
		var f domain.Flag
		var typ, sev string
		if err := rows.Scan(&f.TenderID, &typ, &sev, &f.Score, &f.Evidence, &f.Description); err != nil {
			return nil, err
		}
		f.Type = domain.FlagType(typ)
		f.Severity = domain.Severity(sev)
		out = append(out, f)
	}
	return out, rows.Err()
}
