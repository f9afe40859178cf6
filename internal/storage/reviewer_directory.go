package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lead-intake-service/internal/models"
)

type PostgresReviewerDirectory struct {
	db *sql.DB
}

func NewPostgresReviewerDirectory(db *sql.DB) *PostgresReviewerDirectory {
	return &PostgresReviewerDirectory{db: db}
}

// ListReviewerAddresses returns the email addresses of active reviewers in
// creation order. The list is built at dispatch time; failure records
// capture a snapshot of it.
func (d *PostgresReviewerDirectory) ListReviewerAddresses(ctx context.Context) ([]string, error) {
	query := `SELECT email FROM reviewers WHERE active = TRUE ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing reviewer addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("error scanning reviewer row: %w", err)
		}
		addresses = append(addresses, email)
	}
	return addresses, rows.Err()
}

// ListReviewers returns full reviewer rows for the admin surface.
func (d *PostgresReviewerDirectory) ListReviewers(ctx context.Context) ([]models.Reviewer, error) {
	query := `SELECT id, email, role, active, created_at, updated_at FROM reviewers ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing reviewers: %w", err)
	}
	defer rows.Close()

	var reviewers []models.Reviewer
	for rows.Next() {
		rv := models.Reviewer{}
		if err := rows.Scan(&rv.ID, &rv.Email, &rv.Role, &rv.Active, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning reviewer row: %w", err)
		}
		reviewers = append(reviewers, rv)
	}
	return reviewers, rows.Err()
}
