package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lead-intake-service/internal/models"

	"github.com/lib/pq"
)

var ErrFailureNotFound = fmt.Errorf("failed notification record not found")

type PostgresFailureRepository struct {
	db *sql.DB
}

func NewPostgresFailureRepository(db *sql.DB) *PostgresFailureRepository {
	return &PostgresFailureRepository{db: db}
}

func (r *PostgresFailureRepository) Create(ctx context.Context, rec *models.FailedNotification) error {
	query := `INSERT INTO failed_notifications (lead_id, lead_uuid, lead_name, lead_email, recipients, error_message, status)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.LeadID, rec.LeadUUID, rec.LeadName, rec.LeadEmail,
		pq.Array(rec.Recipients), rec.ErrorMessage, rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating failed notification record: %w", err)
	}
	return nil
}

func (r *PostgresFailureRepository) GetByID(ctx context.Context, id int64) (*models.FailedNotification, error) {
	query := `SELECT id, lead_id, lead_uuid, lead_name, lead_email, recipients, error_message, status, created_at, updated_at
              FROM failed_notifications WHERE id = $1`
	rec := models.FailedNotification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.LeadID, &rec.LeadUUID, &rec.LeadName, &rec.LeadEmail,
		pq.Array(&rec.Recipients), &rec.ErrorMessage, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFailureNotFound
		}
		return nil, fmt.Errorf("error getting failed notification record: %w", err)
	}
	return &rec, nil
}

// ListFailed returns only records still in FAILED state, oldest first.
func (r *PostgresFailureRepository) ListFailed(ctx context.Context) ([]models.FailedNotification, error) {
	query := `SELECT id, lead_id, lead_uuid, lead_name, lead_email, recipients, error_message, status, created_at, updated_at
              FROM failed_notifications WHERE status = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, models.FailureStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("error listing failed notification records: %w", err)
	}
	defer rows.Close()

	var recs []models.FailedNotification
	for rows.Next() {
		rec := models.FailedNotification{}
		if err := rows.Scan(
			&rec.ID, &rec.LeadID, &rec.LeadUUID, &rec.LeadName, &rec.LeadEmail,
			pq.Array(&rec.Recipients), &rec.ErrorMessage, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning failed notification row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateError replaces the stored error message after a failed resend,
// leaving the record in FAILED state.
func (r *PostgresFailureRepository) UpdateError(ctx context.Context, id int64, errorMessage string) error {
	query := `UPDATE failed_notifications SET error_message = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, errorMessage)
	if err != nil {
		return fmt.Errorf("error updating failed notification record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrFailureNotFound
	}
	return nil
}

// DeleteIfFailed removes the record only if it is still in FAILED state.
// The condition makes the storage layer the arbiter when two resends race:
// the loser sees deleted=false and must not send again.
func (r *PostgresFailureRepository) DeleteIfFailed(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM failed_notifications WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, models.FailureStatusFailed)
	if err != nil {
		return false, fmt.Errorf("error deleting failed notification record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes the record unconditionally, used by discard.
func (r *PostgresFailureRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM failed_notifications WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("error deleting failed notification record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n > 0, nil
}

// CountFailed returns the number of unresolved records, for the scheduled
// sweep and the open-records gauge.
func (r *PostgresFailureRepository) CountFailed(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM failed_notifications WHERE status = $1`,
		models.FailureStatusFailed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting failed notification records: %w", err)
	}
	return count, nil
}
