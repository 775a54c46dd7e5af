package booking

import (
	"context"
	"time"
)

type StatusCount struct {
	Status Status `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

type DailyCount struct {
	Day         time.Time `db:"day" json:"day"`
	Count       int       `db:"count" json:"count"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
}

type TopKOL struct {
	KOLID       int   `db:"kol_id" json:"kol_id"`
	Completed   int   `db:"completed" json:"completed"`
	EarnedCents int64 `db:"earned_cents" json:"earned_cents"`
}

// Stats is the admin analytics view over bookings created since a cutoff.
type Stats struct {
	Since    time.Time     `json:"since"`
	ByStatus []StatusCount `json:"by_status"`
	Daily    []DailyCount  `json:"daily"`
	TopKOLs  []TopKOL      `json:"top_kols"`
}

func (r *repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{Since: since}

	byStatus := `
		SELECT status, COUNT(*) AS count
		FROM bookings
		WHERE created_at >= $1
		GROUP BY status
		ORDER BY status
	`
	if err := r.db.SelectContext(ctx, &stats.ByStatus, byStatus, since); err != nil {
		return nil, err
	}

	daily := `
		SELECT DATE_TRUNC('day', created_at) AS day, COUNT(*) AS count, COALESCE(SUM(total_amount_cents), 0) AS amount_cents
		FROM bookings
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`
	if err := r.db.SelectContext(ctx, &stats.Daily, daily, since); err != nil {
		return nil, err
	}

	topKOLs := `
		SELECT kol_id, COUNT(*) AS completed, COALESCE(SUM(total_amount_cents), 0) AS earned_cents
		FROM bookings
		WHERE created_at >= $1 AND status = 'completed'
		GROUP BY kol_id
		ORDER BY earned_cents DESC
		LIMIT 10
	`
	if err := r.db.SelectContext(ctx, &stats.TopKOLs, topKOLs, since); err != nil {
		return nil, err
	}

	return stats, nil
}
