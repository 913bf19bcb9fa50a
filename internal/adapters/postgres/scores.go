package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// UpsertScores writes risk scores keyed by tender id, inserting or updating
// in batches inside one transaction.
func (db *DB) UpsertScores(ctx context.Context, scores []domain.RiskScore) (err error) {
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

	for start := 0; start < len(scores); start += insertBatchSize {
		end := min(start+insertBatchSize, len(scores))
		batch := &pgx.Batch{}
		for _, s := range scores[start:end] {
			summary, jerr := json.Marshal(s.Flags)
			if jerr != nil {
				return jerr
			}
			batch.Queue(`
                INSERT INTO risk_scores (tender_id, cri_score, risk_level, flag_count, flags_summary, computed_at)
                VALUES ($1, $2, $3, $4, $5, $6)
                ON CONFLICT (tender_id) DO UPDATE SET
                    cri_score = EXCLUDED.cri_score,
                    risk_level = EXCLUDED.risk_level,
                    flag_count = EXCLUDED.flag_count,
                    flags_summary = EXCLUDED.flags_summary,
                    computed_at = EXCLUDED.computed_at
            `, s.TenderID, s.CRI, string(s.Level), s.FlagCount, summary, s.ComputedAt)
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) ByTender(ctx context.Context, tenderID string) (domain.RiskScore, error) {
	var s domain.RiskScore
	var level string
	err := db.Pool.QueryRow(ctx, `
        SELECT tender_id, cri_score, risk_level, flag_count, computed_at
        FROM risk_scores WHERE tender_id = $1
    `, tenderID).Scan(&s.TenderID, &s.CRI, &level, &s.FlagCount, &s.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ports.ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.Level = domain.RiskLevel(level)
	return s, nil
}

// AboveThreshold lists tenders scoring at or above minScore, highest first.
// An empty level matches every risk level.
func (db *DB) AboveThreshold(ctx context.Context, minScore int, level domain.RiskLevel) ([]domain.RiskScore, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT tender_id, cri_score, risk_level, flag_count, computed_at
        FROM risk_scores
        WHERE cri_score >= $1 AND ($2 = '' OR risk_level = $2)
        ORDER BY cri_score DESC, tender_id
    `, minScore, string(level))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RiskScore
	for rows.Next() {
		var s domain.RiskScore
		var lvl string
		if err := rows.Scan(&s.TenderID, &s.CRI, &lvl, &s.FlagCount, &s.ComputedAt); err != nil {
			return nil, err
		}
		s.Level = domain.RiskLevel(lvl)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{
		BySeverity:  make(map[domain.Severity]int),
		ByType:      make(map[domain.FlagType]int),
		ByRiskLevel: make(map[domain.RiskLevel]int),
	}

	rows, err := db.Pool.Query(ctx, `SELECT flag_type, severity, count(*) FROM flags GROUP BY flag_type, severity`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ, sev string
		var n int
		if err := rows.Scan(&typ, &sev, &n); err != nil {
			return stats, err
		}
		stats.ByType[domain.FlagType(typ)] += n
		stats.BySeverity[domain.Severity(sev)] += n
		stats.TotalFlags += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	lrows, err := db.Pool.Query(ctx, `SELECT risk_level, count(*) FROM risk_scores GROUP BY risk_level`)
	if err != nil {
		return stats, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var lvl string
		var n int
		if err := lrows.Scan(&lvl, &n); err != nil {
			return stats, err
		}
		stats.ByRiskLevel[domain.RiskLevel(lvl)] += n
		stats.TotalTenders += n
	}
	return stats, lrows.Err()
}
