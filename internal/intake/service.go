// Package intake composes admission, validation, storage and notification
// delivery into the submission pipeline.
package intake

import (
	"context"
	"errors"
	"sync"

	"lead-intake-service/internal/admission"
	apperrors "lead-intake-service/internal/common/errors"
	"lead-intake-service/internal/common/logger"
	"lead-intake-service/internal/common/metrics"
	"lead-intake-service/internal/intake/validation"
	"lead-intake-service/internal/models"
	"lead-intake-service/internal/notify"
	"lead-intake-service/internal/storage"

	"github.com/google/uuid"
)

// LeadRepository persists applicant records.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context) ([]models.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error)
}

// DocumentStore holds resume documents.
type DocumentStore interface {
	Put(ctx context.Context, content []byte, filename, contentType string) (string, error)
	Get(ctx context.Context, locationRef string) ([]byte, string, error)
}

// ReviewerDirectory lists the addresses to notify about new leads.
type ReviewerDirectory interface {
	ListReviewerAddresses(ctx context.Context) ([]string, error)
}

// Sender delivers one notification with retry.
type Sender interface {
	Send(ctx context.Context, req notify.Request) error
}

// FailureRecorder persists a reviewer notice that exhausted its retries.
type FailureRecorder interface {
	Record(ctx context.Context, lead *models.Lead, recipients []string, deliveryErr error) (*models.FailedNotification, error)
}

// Document is an uploaded resume held in memory for the duration of one
// intake call.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Service struct {
	gate      admission.Admitter
	leads     LeadRepository
	documents DocumentStore
	reviewers ReviewerDirectory
	sender    Sender
	failures  FailureRecorder
	logger    logger.Logger

	wg sync.WaitGroup
}

func NewService(
	gate admission.Admitter,
	leads LeadRepository,
	documents DocumentStore,
	reviewers ReviewerDirectory,
	sender Sender,
	failures FailureRecorder,
	log logger.Logger,
) *Service {
	return &Service{
		gate:      gate,
		leads:     leads,
		documents: documents,
		reviewers: reviewers,
		sender:    sender,
		failures:  failures,
		logger:    log.WithFields(map[string]interface{}{"component": "intake"}),
	}
}

// CreateSubmission runs one intake call: admission gate, validation,
// document and lead persistence, then the two notification dispatches.
// Admission and validation reject before any side effect; storage failures
// abort the whole intake; notification outcomes never fail the call.
func (s *Service) CreateSubmission(ctx context.Context, clientID, firstName, lastName, email string, doc Document) (*models.Lead, error) {
	allowed, err := s.gate.Allow(ctx, clientID)
	if err != nil {
		metrics.IntakeRequests.WithLabelValues("error").Inc()
		return nil, apperrors.NewStorageError("admission check", err)
	}
	if !allowed {
		metrics.IntakeRejected.WithLabelValues("rate_limit").Inc()
		metrics.IntakeRequests.WithLabelValues("rejected").Inc()
		return nil, apperrors.NewRateLimitExceededError(clientID)
	}

	if err := validation.ValidateEmail(email); err != nil {
		metrics.IntakeRejected.WithLabelValues("email").Inc()
		metrics.IntakeRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := validation.ValidateDocument(validation.DocumentMeta{
		Filename:    doc.Filename,
		Size:        int64(len(doc.Content)),
		ContentType: doc.ContentType,
	}); err != nil {
		metrics.IntakeRejected.WithLabelValues("document").Inc()
		metrics.IntakeRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = validation.CanonicalContentType(doc.Filename)
	}

	resumePath, err := s.documents.Put(ctx, doc.Content, doc.Filename, contentType)
	if err != nil {
		metrics.IntakeRequests.WithLabelValues("error").Inc()
		return nil, apperrors.NewStorageError("store document", err)
	}

	lead := &models.Lead{
		UUID:       uuid.New(),
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		ResumePath: resumePath,
		Status:     models.LeadStatusPending,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		metrics.IntakeRequests.WithLabelValues("error").Inc()
		return nil, apperrors.NewStorageError("create lead", err)
	}

	s.logger.Info("lead created", map[string]interface{}{
		"lead":   lead.UUID.String(),
		"client": clientID,
	})

	// Both dispatches run off the request goroutine; retry waits suspend
	// only their own dispatch. The intake response does not wait for either
	// outcome.
	s.dispatchAsync(func(ctx context.Context) {
		if err := s.sender.Send(ctx, notify.NewConfirmation(lead)); err != nil {
			// Confirmations are best-effort: logged and dropped, never ledgered.
			s.logger.Warn("confirmation email dropped", map[string]interface{}{
				"lead":  lead.UUID.String(),
				"error": err.Error(),
			})
		}
	})
	s.dispatchAsync(func(ctx context.Context) {
		s.notifyReviewers(ctx, lead)
	})

	metrics.IntakeRequests.WithLabelValues("accepted").Inc()
	return lead, nil
}

// notifyReviewers dispatches the tracked reviewer notice. The recipient
// list is read at dispatch time; on exhaustion exactly one failure record
// is written referencing the just-created lead.
func (s *Service) notifyReviewers(ctx context.Context, lead *models.Lead) {
	recipients, err := s.reviewers.ListReviewerAddresses(ctx)
	if err != nil {
		s.logger.Error("reviewer directory lookup failed", map[string]interface{}{
			"lead":  lead.UUID.String(),
			"error": err.Error(),
		})
		return
	}
	if len(recipients) == 0 {
		s.logger.Warn("no reviewers configured, notice skipped", map[string]interface{}{
			"lead": lead.UUID.String(),
		})
		return
	}

	if err := s.sender.Send(ctx, notify.NewReviewerNotice(lead, recipients)); err != nil {
		if _, recErr := s.failures.Record(ctx, lead, recipients, err); recErr != nil {
			s.logger.Error("failed to persist failure record", map[string]interface{}{
				"lead":  lead.UUID.String(),
				"error": recErr.Error(),
			})
		}
	}
}

// dispatchAsync runs fn on its own goroutine with a fresh context so the
// dispatch outlives the originating HTTP request.
func (s *Service) dispatchAsync(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(context.Background())
	}()
}

// Flush blocks until all in-flight dispatches have finished. Used for
// graceful shutdown and by tests.
func (s *Service) Flush() {
	s.wg.Wait()
}

// ListLeads returns every lead, newest first.
func (s *Service) ListLeads(ctx context.Context) ([]models.Lead, error) {
	leads, err := s.leads.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list leads", err)
	}
	return leads, nil
}

// GetLead returns one lead by its public identifier.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, err := s.leads.GetByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrLeadNotFound) {
			return nil, apperrors.NewNotFoundError("lead", id.String())
		}
		return nil, apperrors.NewStorageError("get lead", err)
	}
	return lead, nil
}

// UpdateLeadStatus moves a lead forward in the review workflow. Backward
// transitions are rejected.
func (s *Service) UpdateLeadStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lead.Status.CanTransitionTo(status) {
		return nil, apperrors.NewInvalidTransitionError(string(lead.Status), string(status))
	}

	updated, err := s.leads.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, storage.ErrLeadNotFound) {
			return nil, apperrors.NewNotFoundError("lead", id.String())
		}
		return nil, apperrors.NewStorageError("update lead status", err)
	}
	return updated, nil
}

// GetResume downloads the stored resume for a lead.
func (s *Service) GetResume(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, "", err
	}
	content, contentType, err := s.documents.Get(ctx, lead.ResumePath)
	if err != nil {
		return nil, "", apperrors.NewStorageError("get document", err)
	}
	return content, contentType, nil
}
