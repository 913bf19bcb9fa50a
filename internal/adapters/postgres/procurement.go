package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"procwatch/internal/domain"
	"procwatch/internal/ports"
)

// TenderReader

func (db *DB) ListTenders(ctx context.Context) ([]domain.Tender, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, procuring_entity, estimated_value, actual_value,
               publication_date, closing_date, signing_date,
               status, winner, procedure_type, num_bidders,
               amendment_count, last_amendment_at, price_only_award
        FROM tenders
        ORDER BY id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tender
	for rows.Next() {
		var t domain.Tender
		if err := rows.Scan(&t.ID, &t.ProcuringEntity, &t.EstimatedValue, &t.ActualValue,
			&t.PublicationDate, &t.ClosingDate, &t.SigningDate,
			&t.Status, &t.Winner, &t.ProcedureType, &t.NumBidders,
			&t.AmendmentCount, &t.LastAmendmentAt, &t.PriceOnlyAward); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// BidReader

func (db *DB) ListBids(ctx context.Context) ([]domain.Bid, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT tender_id, company, amount, is_winner, rank, disqualified, disqual_reason
        FROM bids
        ORDER BY tender_id, company, amount
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.TenderID, &b.Company, &b.Amount, &b.IsWinner,
			&b.Rank, &b.Disqualified, &b.DisqualReason); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AggregateReader

func (db *DB) EntityWinnerShares(ctx context.Context, minSamples int) ([]ports.EntityWinnerShare, error) {
	rows, err := db.Pool.Query(ctx, `
        WITH awarded AS (
            SELECT procuring_entity, winner, id FROM tenders WHERE winner <> ''
        ), totals AS (
            SELECT procuring_entity, count(*) AS total FROM awarded GROUP BY procuring_entity
        )
        SELECT a.procuring_entity, a.winner, count(*) AS wins, t.total,
               array_agg(a.id ORDER BY a.id)
        FROM awarded a
        JOIN totals t USING (procuring_entity)
        GROUP BY a.procuring_entity, a.winner, t.total
        HAVING t.total >= $1
        ORDER BY a.procuring_entity, a.winner
    `, minSamples)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.EntityWinnerShare
	for rows.Next() {
		var s ports.EntityWinnerShare
		if err := rows.Scan(&s.Entity, &s.Winner, &s.Wins, &s.EntityTotal, &s.TenderIDs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) IdenticalBidGroups(ctx context.Context) ([]ports.IdenticalBidGroup, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT b.tender_id, b.amount,
               array_agg(DISTINCT b.company ORDER BY b.company),
               t.estimated_value
        FROM bids b
        JOIN tenders t ON t.id = b.tender_id
        GROUP BY b.tender_id, b.amount, t.estimated_value
        HAVING count(DISTINCT b.company) >= 2
        ORDER BY b.tender_id, b.amount
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.IdenticalBidGroup
	for rows.Next() {
		var g ports.IdenticalBidGroup
		if err := rows.Scan(&g.TenderID, &g.Amount, &g.Companies, &g.Estimate); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (db *DB) QuarterlyAwards(ctx context.Context, maxValue decimal.Decimal) ([]ports.QuarterlyAward, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT procuring_entity, winner,
               to_char(signing_date, 'YYYY"Q"Q') AS quarter,
               array_agg(id ORDER BY id), count(*), sum(actual_value), max(actual_value)
        FROM tenders
        WHERE winner <> '' AND signing_date IS NOT NULL
          AND actual_value > 0 AND actual_value < $1
        GROUP BY procuring_entity, winner, quarter
        HAVING count(*) >= 3
        ORDER BY procuring_entity, winner, quarter
    `, maxValue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.QuarterlyAward
	for rows.Next() {
		var a ports.QuarterlyAward
		if err := rows.Scan(&a.Entity, &a.Winner, &a.Quarter, &a.TenderIDs,
			&a.Contracts, &a.TotalSum, &a.MaxValue); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
