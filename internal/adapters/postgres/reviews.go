package postgres

import (
	"context"

	"procwatch/internal/domain"
)

// Reviews live in their own table keyed by (tender_id, flag_type) precisely
// so the full-replace flag writes never touch them.

func (db *DB) ListFalsePositives(ctx context.Context) ([]domain.FlagReview, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT tender_id, flag_type, false_positive, reviewer, note, reviewed_at
        FROM flag_reviews
        WHERE false_positive
        ORDER BY tender_id, flag_type
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FlagReview
	for rows.Next() {
		var r domain.FlagReview
		var typ string
		if err := rows.Scan(&r.TenderID, &typ, &r.FalsePositive, &r.Reviewer, &r.Note, &r.ReviewedAt); err != nil {
			return nil, err
		}
		r.Type = domain.FlagType(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) SaveReview(ctx context.Context, review domain.FlagReview) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO flag_reviews (tender_id, flag_type, false_positive, reviewer, note, reviewed_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (tender_id, flag_type) DO UPDATE SET
            false_positive = EXCLUDED.false_positive,
            reviewer = EXCLUDED.reviewer,
            note = EXCLUDED.note,
            reviewed_at = now()
    `, review.TenderID, string(review.Type), review.FalsePositive, review.Reviewer, review.Note)
	return err
}
