package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lead-intake-service/internal/admission"
	"lead-intake-service/internal/common/config"
	"lead-intake-service/internal/common/logger"
	"lead-intake-service/internal/failure"
	"lead-intake-service/internal/intake"
	"lead-intake-service/internal/models"
	"lead-intake-service/internal/notify"
	"lead-intake-service/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubLeadRepo struct {
	leads map[uuid.UUID]*models.Lead
}

func newStubLeadRepo() *stubLeadRepo {
	return &stubLeadRepo{leads: make(map[uuid.UUID]*models.Lead)}
}

func (s *stubLeadRepo) Create(_ context.Context, lead *models.Lead) error {
	lead.ID = int64(len(s.leads) + 1)
	s.leads[lead.UUID] = lead
	return nil
}

func (s *stubLeadRepo) GetByUUID(_ context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return nil, storage.ErrLeadNotFound
	}
	return lead, nil
}

func (s *stubLeadRepo) List(_ context.Context) ([]models.Lead, error) {
	var out []models.Lead
	for _, lead := range s.leads {
		out = append(out, *lead)
	}
	return out, nil
}

func (s *stubLeadRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return nil, storage.ErrLeadNotFound
	}
	lead.Status = status
	return lead, nil
}

type stubDocStore struct{}

func (stubDocStore) Put(_ context.Context, _ []byte, _, _ string) (string, error) {
	return "https://bucket.s3.us-east-1.amazonaws.com/key.pdf", nil
}

func (stubDocStore) Get(_ context.Context, _ string) ([]byte, string, error) {
	return []byte("%PDF-1.4"), "application/pdf", nil
}

type stubDirectory struct{}

func (stubDirectory) ListReviewerAddresses(_ context.Context) ([]string, error) {
	return []string{"reviewer@example.com"}, nil
}

type stubSender struct{}

func (stubSender) Send(_ context.Context, _ notify.Request) error { return nil }

type stubFailureRepo struct {
	records map[int64]*models.FailedNotification
}

func newStubFailureRepo() *stubFailureRepo {
	return &stubFailureRepo{records: make(map[int64]*models.FailedNotification)}
}

func (s *stubFailureRepo) Create(_ context.Context, rec *models.FailedNotification) error {
	rec.ID = int64(len(s.records) + 1)
	s.records[rec.ID] = rec
	return nil
}

func (s *stubFailureRepo) GetByID(_ context.Context, id int64) (*models.FailedNotification, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, storage.ErrFailureNotFound
	}
	return rec, nil
}

func (s *stubFailureRepo) ListFailed(_ context.Context) ([]models.FailedNotification, error) {
	var out []models.FailedNotification
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *stubFailureRepo) UpdateError(_ context.Context, id int64, msg string) error {
	rec, ok := s.records[id]
	if !ok {
		return storage.ErrFailureNotFound
	}
	rec.ErrorMessage = msg
	return nil
}

func (s *stubFailureRepo) DeleteIfFailed(_ context.Context, id int64) (bool, error) {
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

func (s *stubFailureRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

func (s *stubFailureRepo) CountFailed(_ context.Context) (int, error) {
	return len(s.records), nil
}

type testEnv struct {
	server  *Server
	intake  *intake.Service
	leads   *stubLeadRepo
	failRec *stubFailureRepo
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewTestLogger(t)

	leads := newStubLeadRepo()
	failRepo := newStubFailureRepo()
	gate := admission.NewGate(5, time.Minute)
	failureSvc := failure.NewService(failRepo, stubSender{}, nil, log)
	intakeSvc := intake.NewService(gate, leads, stubDocStore{}, stubDirectory{}, stubSender{}, failureSvc, log)

	srv := New(
		config.ServerConfig{Port: 0, ReadTimeout: 15000, WriteTimeout: 30000},
		config.RateLimitConfig{GlobalRPS: 1000, GlobalBurst: 1000},
		intakeSvc, failureSvc, nil, log,
	)
	return &testEnv{server: srv, intake: intakeSvc, leads: leads, failRec: failRepo}
}

func multipartLead(t *testing.T, firstName, lastName, email, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("first_name", firstName))
	require.NoError(t, w.WriteField("last_name", lastName))
	require.NoError(t, w.WriteField("email", email))
	fw, err := w.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.httpServer.Handler.ServeHTTP(rr, req)
	return rr
}

// ==========================
// Lead Endpoint Tests
// ==========================

func TestServer_CreateLead(t *testing.T) {
	env := newTestServer(t)

	body, contentType := multipartLead(t, "Jane", "Doe", "jane@example.com", "resume.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/leads", body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "10.0.0.1:51234"

	rr := env.do(req)
	env.intake.Flush()

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var lead models.Lead
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lead))
	assert.Equal(t, "Jane", lead.FirstName)
	assert.Equal(t, models.LeadStatusPending, lead.Status)
	assert.NotEqual(t, uuid.Nil, lead.UUID)
}

func TestServer_CreateLeadInvalidEmail(t *testing.T) {
	env := newTestServer(t)

	body, contentType := multipartLead(t, "Jane", "Doe", "no-at-sign", "resume.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/leads", body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "10.0.0.1:51234"

	rr := env.do(req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_EMAIL", resp.Code)
}

func TestServer_CreateLeadRateLimited(t *testing.T) {
	env := newTestServer(t)

	for i := 0; i < 6; i++ {
		body, contentType := multipartLead(t, "Jane", "Doe", "jane@example.com", "resume.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/leads", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "10.0.0.1:51234"

		rr := env.do(req)
		if i < 5 {
			assert.Equal(t, http.StatusCreated, rr.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rr.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Code)
		}
	}
	env.intake.Flush()
}

func TestServer_GetLeadNotFound(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/leads/"+uuid.New().String(), nil)
	rr := env.do(req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_GetLeadMalformedID(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/leads/not-a-uuid", nil)
	rr := env.do(req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_UpdateLeadStatus(t *testing.T) {
	env := newTestServer(t)

	lead := &models.Lead{UUID: uuid.New(), Status: models.LeadStatusPending}
	require.NoError(t, env.leads.Create(context.Background(), lead))

	payload := bytes.NewBufferString(`{"status":"REACHED_OUT"}`)
	req := httptest.NewRequest(http.MethodPut, "/leads/"+lead.UUID.String()+"/status", payload)
	rr := env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	var updated models.Lead
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, models.LeadStatusReachedOut, updated.Status)

	// Regressing is a client error.
	payload = bytes.NewBufferString(`{"status":"PENDING"}`)
	req = httptest.NewRequest(http.MethodPut, "/leads/"+lead.UUID.String()+"/status", payload)
	rr = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ==========================
// Failure Endpoint Tests
// ==========================

func TestServer_FailedNotificationLifecycle(t *testing.T) {
	env := newTestServer(t)

	rec := &models.FailedNotification{
		LeadUUID:   uuid.New(),
		LeadName:   "Jane Doe",
		LeadEmail:  "jane@example.com",
		Recipients: []string{"reviewer@example.com"},
		Status:     models.FailureStatusFailed,
	}
	require.NoError(t, env.failRec.Create(context.Background(), rec))

	req := httptest.NewRequest(http.MethodGet, "/admin/failed-notifications", nil)
	rr := env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	var listed []models.FailedNotification
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	// Resend succeeds and resolves the record.
	req = httptest.NewRequest(http.MethodPost, "/admin/failed-notifications/1/resend", nil)
	rr = env.do(req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// A second resend finds nothing.
	req = httptest.NewRequest(http.MethodPost, "/admin/failed-notifications/1/resend", nil)
	rr = env.do(req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_DiscardFailedNotification(t *testing.T) {
	env := newTestServer(t)

	rec := &models.FailedNotification{
		LeadUUID: uuid.New(), Recipients: []string{"r@example.com"}, Status: models.FailureStatusFailed,
	}
	require.NoError(t, env.failRec.Create(context.Background(), rec))

	req := httptest.NewRequest(http.MethodDelete, "/admin/failed-notifications/1", nil)
	rr := env.do(req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/admin/failed-notifications/1", nil)
	rr = env.do(req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ==========================
// Middleware Tests
// ==========================

func TestServer_GlobalThrottle(t *testing.T) {
	log := logger.NewNoOpLogger()
	leads := newStubLeadRepo()
	failureSvc := failure.NewService(newStubFailureRepo(), stubSender{}, nil, log)
	intakeSvc := intake.NewService(admission.NewGate(5, time.Minute), leads, stubDocStore{}, stubDirectory{}, stubSender{}, failureSvc, log)
	srv := New(
		config.ServerConfig{},
		config.RateLimitConfig{GlobalRPS: 1, GlobalBurst: 1},
		intakeSvc, failureSvc, nil, log,
	)
	env := &testEnv{server: srv}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := env.do(req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		expected   string
	}{
		{
			name:       "remote address host",
			remoteAddr: "10.0.0.1:51234",
			expected:   "10.0.0.1",
		},
		{
			name:       "forwarded header wins",
			remoteAddr: "10.0.0.1:51234",
			forwarded:  "203.0.113.9",
			expected:   "203.0.113.9",
		},
		{
			name:       "first forwarded hop",
			remoteAddr: "10.0.0.1:51234",
			forwarded:  "203.0.113.9, 198.51.100.2",
			expected:   "203.0.113.9",
		},
		{
			name:       "unparseable remote address used verbatim",
			remoteAddr: "bogus",
			expected:   "bogus",
		},
		{
			name:     "everything missing",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.expected, clientKey(req))
		})
	}
}
