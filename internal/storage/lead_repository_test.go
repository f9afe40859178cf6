package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"lead-intake-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func leadColumns() []string {
	return []string{"id", "uuid", "first_name", "last_name", "email", "resume_path", "status", "created_at", "updated_at"}
}

func leadRow(id int64, leadUUID uuid.UUID, now time.Time) []driverValue {
	return []driverValue{id, leadUUID, "Jane", "Doe", "jane@example.com",
		"https://bucket.s3.us-east-1.amazonaws.com/key.pdf", "PENDING", now, now}
}

type driverValue = driver.Value

// ==========================
// Create Tests
// ==========================

func TestLeadRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	now := time.Now()
	lead := &models.Lead{
		UUID:       uuid.New(),
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@example.com",
		ResumePath: "https://bucket.s3.us-east-1.amazonaws.com/key.pdf",
		Status:     models.LeadStatusPending,
	}

	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(lead.UUID, "Jane", "Doe", "jane@example.com", lead.ResumePath, lead.Status).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	err := repo.Create(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lead.ID)
	assert.Equal(t, now, lead.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_CreateError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	mock.ExpectQuery("INSERT INTO leads").
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.Lead{UUID: uuid.New()})
	assert.ErrorContains(t, err, "connection reset")
}

// ==========================
// Query Tests
// ==========================

func TestLeadRepository_GetByUUID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE uuid").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(leadColumns()).AddRow(leadRow(7, id, now)...))

	lead, err := repo.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lead.ID)
	assert.Equal(t, id, lead.UUID)
	assert.Equal(t, models.LeadStatusPending, lead.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_GetByUUIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE uuid").
		WillReturnRows(sqlmock.NewRows(leadColumns()))

	_, err := repo.GetByUUID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestLeadRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM leads ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(leadColumns()).
			AddRow(leadRow(1, uuid.New(), now)...).
			AddRow(leadRow(2, uuid.New(), now)...))

	leads, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

// ==========================
// Update Tests
// ==========================

func TestLeadRepository_UpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	id := uuid.New()
	now := time.Now()
	row := leadRow(7, id, now)
	row[6] = "REACHED_OUT"
	mock.ExpectQuery("UPDATE leads SET status").
		WithArgs(id, models.LeadStatusReachedOut).
		WillReturnRows(sqlmock.NewRows(leadColumns()).AddRow(row...))

	lead, err := repo.UpdateStatus(context.Background(), id, models.LeadStatusReachedOut)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusReachedOut, lead.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_UpdateStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLeadRepository(db)

	mock.ExpectQuery("UPDATE leads SET status").
		WillReturnRows(sqlmock.NewRows(leadColumns()))

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), models.LeadStatusReachedOut)
	assert.ErrorIs(t, err, ErrLeadNotFound)
}
