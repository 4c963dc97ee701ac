package apiconfig

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store loads runtime settings from the settings table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds Store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load reads all settings rows. Missing keys fall back to defaults and
// malformed values are skipped.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("apiconfig: load settings: %w", err)
	}
	defer rows.Close()

	settings := Defaults()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case "api.base_url":
			settings.APIBaseURL = value
		case "api.port":
			if port, err := strconv.Atoi(value); err == nil && port > 0 {
				settings.APIPort = port
			}
		case "session.timeout_seconds":
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
				settings.SessionTimeout = time.Duration(secs) * time.Second
			}
		case "receivable.settled_edit_override":
			settings.AllowSettledReceivableEdit = value == "true"
		case "payable.settled_edit_override":
			settings.AllowSettledPayableEdit = value == "true"
		case "sales.finalized_edit_override":
			settings.AllowFinalizedOrderEdit = value == "true"
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
