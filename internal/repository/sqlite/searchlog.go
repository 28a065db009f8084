package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
)

var _ repository.SearchLogRepository = (*DB)(nil)

// LogSearch appends an audit row. The timestamp is always generated here,
// never taken from the caller.
func (db *DB) LogSearch(ctx context.Context, username, city string, temp int) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO logs (username, timestamp, city, temp) VALUES (?, ?, ?, ?)`,
		username, db.timestamp(), city, temp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: logging search by %q: %w", username, err)
	}
	return nil
}

// ListLogs returns search logs newest first, optionally filtered to one user.
//
// Dynamic WHERE clause, same approach as any optional filter: start from the
// base query and only append the condition when the filter is set. Values
// still go through placeholders.
func (db *DB) ListLogs(ctx context.Context, username string) ([]model.SearchLog, error) {
	query := `SELECT id, username, city, temp, timestamp FROM logs`
	var args []any
	if username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing logs: %w", err)
	}
	defer rows.Close()

	logs := []model.SearchLog{}
	for rows.Next() {
		var (
			l  model.SearchLog
			ts string
		)
		if err := rows.Scan(&l.ID, &l.Username, &l.City, &l.Temp, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scanning log row: %w", err)
		}
		l.Timestamp = parseTimestamp(ts)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating log rows: %w", err)
	}
	return logs, nil
}
