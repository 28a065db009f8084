package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
)

var _ repository.FavoriteRepository = (*DB)(nil)

// UpsertFavorite stores a city, or refreshes its temperature, condition and
// date added when it is already a favorite. A city appears at most once.
func (db *DB) UpsertFavorite(ctx context.Context, city string, temp int, condition string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorites (city, last_temp, condition, date_added) VALUES (?, ?, ?, ?)
		 ON CONFLICT(city) DO UPDATE SET
			last_temp  = excluded.last_temp,
			condition  = excluded.condition,
			date_added = excluded.date_added`,
		city, temp, condition, db.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting favorite %q: %w", city, err)
	}
	return nil
}

// RemoveFavorite deletes a city from favorites.
// Returns apperror.ErrNotFound if the city was not a favorite.
func (db *DB) RemoveFavorite(ctx context.Context, city string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM favorites WHERE city = ?`, city)
	if err != nil {
		return fmt.Errorf("sqlite: removing favorite %q: %w", city, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("favorite", city)
	}
	return nil
}

func (db *DB) IsFavorite(ctx context.Context, city string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE city = ?)`, city,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite %q: %w", city, err)
	}
	return exists, nil
}

// ListFavorites returns favorites, most recently added first.
func (db *DB) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT city, last_temp, condition, date_added FROM favorites
		 ORDER BY date_added DESC, city ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites: %w", err)
	}
	defer rows.Close()

	favorites := []model.Favorite{}
	for rows.Next() {
		var (
			f     model.Favorite
			added string
		)
		if err := rows.Scan(&f.City, &f.LastTemp, &f.Condition, &added); err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		f.DateAdded = parseTimestamp(added)
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorite rows: %w", err)
	}
	return favorites, nil
}

func (db *DB) ClearFavorites(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM favorites`); err != nil {
		return fmt.Errorf("sqlite: clearing favorites: %w", err)
	}
	return nil
}
