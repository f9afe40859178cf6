// Package storage holds the postgres repositories and the resume document
// store consumed by the intake core.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lead-intake-service/internal/models"

	"github.com/google/uuid"
)

var ErrLeadNotFound = fmt.Errorf("lead not found")

type PostgresLeadRepository struct {
	db *sql.DB
}

func NewPostgresLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

// Create inserts the lead and fills in the server-assigned id and
// timestamps. The public UUID is generated by the caller.
func (r *PostgresLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	query := `INSERT INTO leads (uuid, first_name, last_name, email, resume_path, status)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		lead.UUID, lead.FirstName, lead.LastName, lead.Email, lead.ResumePath, lead.Status,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating lead: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	query := `SELECT id, uuid, first_name, last_name, email, resume_path, status, created_at, updated_at
              FROM leads WHERE uuid = $1`
	lead := models.Lead{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID, &lead.UUID, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.ResumePath, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("error getting lead by uuid: %w", err)
	}
	return &lead, nil
}

func (r *PostgresLeadRepository) List(ctx context.Context) ([]models.Lead, error) {
	query := `SELECT id, uuid, first_name, last_name, email, resume_path, status, created_at, updated_at
              FROM leads ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead := models.Lead{}
		if err := rows.Scan(
			&lead.ID, &lead.UUID, &lead.FirstName, &lead.LastName, &lead.Email,
			&lead.ResumePath, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning lead row: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateStatus moves the lead to the given status and returns the updated
// row. Forward-only movement is enforced by the caller before this point.
func (r *PostgresLeadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error) {
	query := `UPDATE leads SET status = $2, updated_at = NOW() WHERE uuid = $1
              RETURNING id, uuid, first_name, last_name, email, resume_path, status, created_at, updated_at`
	lead := models.Lead{}
	err := r.db.QueryRowContext(ctx, query, id, status).Scan(
		&lead.ID, &lead.UUID, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.ResumePath, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("error updating lead status: %w", err)
	}
	return &lead, nil
}
