package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// ArrivalRepository stores per-stop arrival records scoped by plan key
type ArrivalRepository struct {
	db *sql.DB
}

// NewArrivalRepository creates a new arrival repository
func NewArrivalRepository(db *sql.DB) *ArrivalRepository {
	return &ArrivalRepository{db: db}
}

// SaveRecord inserts or replaces one arrival record
func (r *ArrivalRepository) SaveRecord(key models.PlanKey, rec models.ArrivalRecord) error {
	query := `INSERT INTO arrival_records (plan_key, day, activity_id, confirmed_at, snoozed_until)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_key, day, activity_id) DO UPDATE SET
			confirmed_at = excluded.confirmed_at,
			snoozed_until = excluded.snoozed_until`

	_, err := r.db.Exec(query, key.String(), rec.Stop.Day, rec.Stop.ActivityID,
		formatNullTime(rec.ConfirmedAt), formatNullTime(rec.SnoozedUntil))
	if err != nil {
		return fmt.Errorf("failed to save arrival record: %w", err)
	}
	return nil
}

// ListRecords returns the arrival records of a plan ordered by day and activity
func (r *ArrivalRepository) ListRecords(key models.PlanKey) ([]models.ArrivalRecord, error) {
	query := `SELECT day, activity_id, confirmed_at, snoozed_until
		FROM arrival_records WHERE plan_key = ? ORDER BY day, activity_id`

	rows, err := r.db.Query(query, key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query arrival records: %w", err)
	}
	defer rows.Close()

	records := []models.ArrivalRecord{}
	for rows.Next() {
		var (
			rec                     models.ArrivalRecord
			confirmedAt, snoozedTil sql.NullString
		)
		if err := rows.Scan(&rec.Stop.Day, &rec.Stop.ActivityID, &confirmedAt, &snoozedTil); err != nil {
			return nil, fmt.Errorf("failed to scan arrival record: %w", err)
		}
		if rec.ConfirmedAt, err = parseNullTime(confirmedAt); err != nil {
			return nil, err
		}
		if rec.SnoozedUntil, err = parseNullTime(snoozedTil); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteForPlan removes every record of a plan
func (r *ArrivalRepository) DeleteForPlan(key models.PlanKey) error {
	if _, err := r.db.Exec("DELETE FROM arrival_records WHERE plan_key = ?", key.String()); err != nil {
		return fmt.Errorf("failed to delete arrival records: %w", err)
	}
	return nil
}
