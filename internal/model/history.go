package model

import "time"

// Favorite is a city the user pinned, with the last reading seen for it.
// Favorites are shared by every account on this machine.
type Favorite struct {
	City      string    `json:"city"      db:"city"`
	LastTemp  int       `json:"lastTemp"  db:"last_temp"`
	Condition string    `json:"condition" db:"condition"`
	DateAdded time.Time `json:"dateAdded" db:"date_added"`
}

// Recent is one entry of the global, bounded search history.
type Recent struct {
	ID           int64     `json:"id"           db:"id"`
	City         string    `json:"city"         db:"city"`
	LastTemp     int       `json:"lastTemp"     db:"last_temp"`
	TimeSearched time.Time `json:"timeSearched" db:"time_searched"`
}

// SearchLog is one row of the per-account audit trail shown to admins.
type SearchLog struct {
	ID        int64     `json:"id"        db:"id"`
	Username  string    `json:"username"  db:"username"`
	City      string    `json:"city"      db:"city"`
	Temp      int       `json:"temp"      db:"temp"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
