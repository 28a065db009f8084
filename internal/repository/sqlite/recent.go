package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
)

var _ repository.RecentRepository = (*DB)(nil)

// AddRecent records a search and prunes the table to the newest
// repository.MaxRecents rows.
//
// INSERT AND PRUNE IN ONE TRANSACTION:
// If the prune ran separately, a crash between the two statements would leave
// 21 rows behind. Inside a transaction both happen or neither does, so a
// reader never sees more than MaxRecents rows.
//
// Rows are ordered by id, not time_searched: the id is strictly increasing,
// while two searches can land on the same timestamp.
func (db *DB) AddRecent(ctx context.Context, city string, temp int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning recent transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recents (city, last_temp, time_searched) VALUES (?, ?, ?)`,
		city, temp, db.timestamp(),
	); err != nil {
		return fmt.Errorf("sqlite: inserting recent %q: %w", city, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recents WHERE id NOT IN (
			SELECT id FROM recents ORDER BY id DESC LIMIT ?
		)`,
		repository.MaxRecents,
	); err != nil {
		return fmt.Errorf("sqlite: pruning recents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing recent %q: %w", city, err)
	}
	return nil
}

// ListRecents returns up to limit searches, newest first. A limit outside
// 1..MaxRecents means MaxRecents.
func (db *DB) ListRecents(ctx context.Context, limit int) ([]model.Recent, error) {
	if limit <= 0 || limit > repository.MaxRecents {
		limit = repository.MaxRecents
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, city, last_temp, time_searched FROM recents
		 ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recents: %w", err)
	}
	defer rows.Close()

	recents := []model.Recent{}
	for rows.Next() {
		var (
			r        model.Recent
			searched string
		)
		if err := rows.Scan(&r.ID, &r.City, &r.LastTemp, &searched); err != nil {
			return nil, fmt.Errorf("sqlite: scanning recent row: %w", err)
		}
		r.TimeSearched = parseTimestamp(searched)
		recents = append(recents, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recent rows: %w", err)
	}
	return recents, nil
}

func (db *DB) ClearRecents(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recents`); err != nil {
		return fmt.Errorf("sqlite: clearing recents: %w", err)
	}
	return nil
}
