// Package failure implements the durable ledger of reviewer notices whose
// delivery retries were exhausted, with the resend/discard lifecycle.
package failure

import (
	"context"
	"errors"

	apperrors "lead-intake-service/internal/common/errors"
	"lead-intake-service/internal/common/logger"
	"lead-intake-service/internal/common/metrics"
	"lead-intake-service/internal/models"
	"lead-intake-service/internal/notify"
	"lead-intake-service/internal/storage"
)

// Repository is the durable store backing the ledger.
type Repository interface {
	Create(ctx context.Context, rec *models.FailedNotification) error
	GetByID(ctx context.Context, id int64) (*models.FailedNotification, error)
	ListFailed(ctx context.Context) ([]models.FailedNotification, error)
	UpdateError(ctx context.Context, id int64, errorMessage string) error
	DeleteIfFailed(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountFailed(ctx context.Context) (int, error)
}

// Sender re-delivers a stored notification, usually the retrying
// dispatcher.
type Sender interface {
	Send(ctx context.Context, req notify.Request) error
}

// Alerter is notified when a new failure record is created. Optional.
type Alerter interface {
	FailureRecorded(ctx context.Context, rec *models.FailedNotification) error
}

type Service struct {
	repo    Repository
	sender  Sender
	alerter Alerter
	logger  logger.Logger
}

func NewService(repo Repository, sender Sender, alerter Alerter, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		sender:  sender,
		alerter: alerter,
		logger:  log.WithFields(map[string]interface{}{"component": "failure-ledger"}),
	}
}

// Record persists a failure record for a reviewer notice that exhausted its
// retries. Called exactly once per exhausted dispatch; confirmation
// failures never reach here.
func (s *Service) Record(ctx context.Context, lead *models.Lead, recipients []string, deliveryErr error) (*models.FailedNotification, error) {
	rec := &models.FailedNotification{
		LeadID:       lead.ID,
		LeadUUID:     lead.UUID,
		LeadName:     lead.FullName(),
		LeadEmail:    lead.Email,
		Recipients:   recipients,
		ErrorMessage: deliveryErr.Error(),
		Status:       models.FailureStatusFailed,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, apperrors.NewStorageError("create failure record", err)
	}

	metrics.FailureRecordsOpen.Inc()
	s.logger.Error("reviewer notice recorded as failed", map[string]interface{}{
		"recordId":   rec.ID,
		"lead":       rec.LeadUUID.String(),
		"recipients": len(rec.Recipients),
	})

	if s.alerter != nil {
		if err := s.alerter.FailureRecorded(ctx, rec); err != nil {
			s.logger.Warn("failure alert publish failed", map[string]interface{}{
				"recordId": rec.ID,
				"error":    err.Error(),
			})
		}
	}

	return rec, nil
}

// List returns the unresolved records.
func (s *Service) List(ctx context.Context) ([]models.FailedNotification, error) {
	recs, err := s.repo.ListFailed(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list failure records", err)
	}
	return recs, nil
}

// Resend re-delivers the stored notification to the originally captured
// recipient list, not the current reviewer directory; the snapshot
// preserves historical intent. On success the record is deleted (deletion
// is the resolution signal); on failure the stored error message is updated
// in place.
func (s *Service) Resend(ctx context.Context, id int64) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrFailureNotFound) {
			return apperrors.NewNotFoundError("failed notification", itoa(id))
		}
		return apperrors.NewStorageError("load failure record", err)
	}

	// The row must still be failed right before the send, or a concurrent
	// resend already won.
	if rec.Status != models.FailureStatusFailed {
		return apperrors.NewNotInFailedStateError(id)
	}

	lead := &models.Lead{UUID: rec.LeadUUID, Email: rec.LeadEmail}
	lead.FirstName, lead.LastName = splitName(rec.LeadName)
	req := notify.NewReviewerNotice(lead, rec.Recipients)

	if sendErr := s.sender.Send(ctx, req); sendErr != nil {
		if err := s.repo.UpdateError(ctx, id, sendErr.Error()); err != nil {
			s.logger.Error("failed to update record after resend failure", map[string]interface{}{
				"recordId": id,
				"error":    err.Error(),
			})
		}
		return sendErr
	}

	deleted, err := s.repo.DeleteIfFailed(ctx, id)
	if err != nil {
		return apperrors.NewStorageError("resolve failure record", err)
	}
	if deleted {
		metrics.FailureRecordsOpen.Dec()
	} else {
		// A concurrent resend or discard resolved the record first. The
		// delivery still went out, which at-least-once semantics allow.
		s.logger.Warn("record already resolved by concurrent operation", map[string]interface{}{
			"recordId": id,
		})
	}

	s.logger.Info("failed notification resent", map[string]interface{}{
		"recordId":   id,
		"lead":       rec.LeadUUID.String(),
		"recipients": len(rec.Recipients),
	})
	return nil
}

// Discard deletes the record without any delivery attempt. Discarding a
// missing record, including a second discard of the same id, returns
// NotFound.
func (s *Service) Discard(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperrors.NewStorageError("discard failure record", err)
	}
	if !deleted {
		return apperrors.NewNotFoundError("failed notification", itoa(id))
	}

	metrics.FailureRecordsOpen.Dec()
	s.logger.Info("failed notification discarded", map[string]interface{}{
		"recordId": id,
	})
	return nil
}

// CountOpen reports the number of unresolved records and refreshes the
// gauge; the scheduled sweep calls this.
func (s *Service) CountOpen(ctx context.Context) (int, error) {
	count, err := s.repo.CountFailed(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("count failure records", err)
	}
	metrics.FailureRecordsOpen.Set(float64(count))
	return count, nil
}
