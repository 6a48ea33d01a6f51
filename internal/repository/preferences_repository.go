package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// PreferencesRepository stores the single traveler preference vector
// and the active tracking session
type PreferencesRepository struct {
	db *sql.DB
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Save replaces the stored preferences
func (r *PreferencesRepository) Save(prefs models.Preferences) error {
	tags := prefs.LikedTags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to serialize liked tags: %w", err)
	}

	query := `INSERT INTO preferences (id, tempo, price, mode, liked_tags_json, guided_tour, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tempo = excluded.tempo,
			price = excluded.price,
			mode = excluded.mode,
			liked_tags_json = excluded.liked_tags_json,
			guided_tour = excluded.guided_tour,
			updated_at = excluded.updated_at`

	_, err = r.db.Exec(query, prefs.Tempo, prefs.Price, string(prefs.Mode), string(tagsJSON),
		boolToInt(prefs.GuidedTour), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Get returns the stored preferences, or nil when none were saved
func (r *PreferencesRepository) Get() (*models.Preferences, error) {
	var (
		prefs    models.Preferences
		mode     string
		tagsJSON string
		guided   int
	)
	err := r.db.QueryRow("SELECT tempo, price, mode, liked_tags_json, guided_tour FROM preferences WHERE id = 1").
		Scan(&prefs.Tempo, &prefs.Price, &mode, &tagsJSON, &guided)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	prefs.Mode = models.TransportMode(mode)
	prefs.GuidedTour = guided == 1
	if err := json.Unmarshal([]byte(tagsJSON), &prefs.LikedTags); err != nil {
		return nil, fmt.Errorf("failed to parse liked tags: %w", err)
	}
	if len(prefs.LikedTags) == 0 {
		prefs.LikedTags = nil
	}
	return &prefs, nil
}

// SaveActivePlan records the tracking session
func (r *PreferencesRepository) SaveActivePlan(active models.ActivePlan) error {
	query := `INSERT INTO active_plan (id, plan_key, day, guided_tour, profile, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plan_key = excluded.plan_key,
			day = excluded.day,
			guided_tour = excluded.guided_tour,
			profile = excluded.profile,
			updated_at = excluded.updated_at`

	_, err := r.db.Exec(query, active.Key.String(), active.Day, boolToInt(active.GuidedTour),
		active.Profile, formatTime(active.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save active plan: %w", err)
	}
	return nil
}

// GetActivePlan returns the tracking session, or nil when none is active
func (r *PreferencesRepository) GetActivePlan() (*models.ActivePlan, error) {
	var (
		active    models.ActivePlan
		key       string
		guided    int
		updatedAt string
	)
	err := r.db.QueryRow("SELECT plan_key, day, guided_tour, profile, updated_at FROM active_plan WHERE id = 1").
		Scan(&key, &active.Day, &guided, &active.Profile, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active plan: %w", err)
	}

	if active.Key, err = models.ParsePlanKey(key); err != nil {
		return nil, err
	}
	active.GuidedTour = guided == 1
	if active.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &active, nil
}

// ClearActivePlan ends the tracking session
func (r *PreferencesRepository) ClearActivePlan() error {
	if _, err := r.db.Exec("DELETE FROM active_plan WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear active plan: %w", err)
	}
	return nil
}
