package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// ItineraryRepository handles database operations for itineraries
type ItineraryRepository struct {
	db *sql.DB
}

// NewItineraryRepository creates a new itinerary repository
func NewItineraryRepository(db *sql.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

// Save inserts or replaces the itinerary stored under its plan key
func (r *ItineraryRepository) Save(it *models.Itinerary) error {
	daysJSON, err := json.Marshal(it.Days)
	if err != nil {
		return fmt.Errorf("failed to serialize days: %w", err)
	}

	query := `INSERT INTO itineraries (plan_key, start_date, end_date, days_json, locked, fallback, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(plan_key) DO UPDATE SET
			days_json = excluded.days_json,
			locked = excluded.locked,
			fallback = excluded.fallback,
			updated_at = excluded.updated_at`

	_, err = r.db.Exec(query,
		it.Key.String(), it.Key.Start, it.Key.End, string(daysJSON),
		boolToInt(it.Locked), boolToInt(it.Fallback),
		formatTime(it.CreatedAt), formatTime(it.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

// Get retrieves the itinerary for a plan key, or nil when none is stored
func (r *ItineraryRepository) Get(key models.PlanKey) (*models.Itinerary, error) {
	query := `SELECT start_date, end_date, days_json, locked, fallback, created_at, updated_at
		FROM itineraries WHERE plan_key = ?`

	var (
		it                   models.Itinerary
		daysJSON             string
		locked, fallback     int
		createdAt, updatedAt string
	)
	err := r.db.QueryRow(query, key.String()).Scan(
		&it.Key.Start, &it.Key.End, &daysJSON, &locked, &fallback, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}

	if err := json.Unmarshal([]byte(daysJSON), &it.Days); err != nil {
		return nil, fmt.Errorf("failed to parse days: %w", err)
	}
	it.Locked = locked == 1
	it.Fallback = fallback == 1
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// SetLocked updates the confirmation flag; it reports false when no itinerary exists
func (r *ItineraryRepository) SetLocked(key models.PlanKey, locked bool) (bool, error) {
	result, err := r.db.Exec("UPDATE itineraries SET locked = ? WHERE plan_key = ?", boolToInt(locked), key.String())
	if err != nil {
		return false, fmt.Errorf("failed to update lock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ListKeys returns every stored plan key, newest first
func (r *ItineraryRepository) ListKeys() ([]models.PlanKey, error) {
	rows, err := r.db.Query("SELECT start_date, end_date FROM itineraries ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query itineraries: %w", err)
	}
	defer rows.Close()

	var keys []models.PlanKey
	for rows.Next() {
		var k models.PlanKey
		if err := rows.Scan(&k.Start, &k.End); err != nil {
			return nil, fmt.Errorf("failed to scan plan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes an itinerary and its arrival records
func (r *ItineraryRepository) Delete(key models.PlanKey) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM arrival_records WHERE plan_key = ?", key.String()); err != nil {
		return fmt.Errorf("failed to delete arrival records: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM itineraries WHERE plan_key = ?", key.String()); err != nil {
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
