package cup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository mirrors settled game records into Postgres for reporting.
// The Redis conditional create remains the settlement guard; the insert
// here tolerates duplicates on its own.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveRecord inserts a settled game; an existing row for the id is left
// untouched.
func (r *Repository) SaveRecord(ctx context.Context, rec *GameRecord) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	const query = `
		INSERT INTO game_records (id, w_team, w_score, l_team, l_score, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.WTeam, rec.WScore, rec.LTeam, rec.LScore, rec.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}
	return nil
}

// RecentRecords returns the latest settled games, newest first.
func (r *Repository) RecentRecords(ctx context.Context, limit int) ([]*GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, w_team, w_score, l_team, l_score, saved_at
		FROM game_records
		ORDER BY saved_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select game records: %w", err)
	}
	defer rows.Close()

	records := make([]*GameRecord, 0, limit)
	for rows.Next() {
		var rec GameRecord
		if err := rows.Scan(&rec.ID, &rec.WTeam, &rec.WScore, &rec.LTeam, &rec.LScore, &rec.SavedAt); err != nil {
			return nil, fmt.Errorf("scan game record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
