package notify

import (
	"context"
	"math/rand"
	"time"

	apperrors "lead-intake-service/internal/common/errors"
	"lead-intake-service/internal/common/logger"
	"lead-intake-service/internal/common/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 60 * time.Second

	jitterMin = 0.1
	jitterMax = 0.3
)

// Dispatcher sends a notification through the injected Transport with
// exponential-backoff retry. Every transport error is treated as retryable;
// there is no permanent/transient distinction.
type Dispatcher struct {
	transport  Transport
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	randFloat  func() float64
}

type DispatcherOption func(*Dispatcher)

// WithRetryPolicy overrides the retry budget and backoff bounds.
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxRetries = maxRetries
		d.baseDelay = baseDelay
		d.maxDelay = maxDelay
	}
}

// WithSleeper overrides the backoff sleep, used by tests to observe delays
// without waiting.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) DispatcherOption {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// WithJitterSource overrides the jitter randomness, used by tests.
func WithJitterSource(randFloat func() float64) DispatcherOption {
	return func(d *Dispatcher) { d.randFloat = randFloat }
}

func NewDispatcher(transport Transport, log logger.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport:  transport,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
		logger:     log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		sleep:      sleepContext,
		randFloat:  rand.Float64,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send attempts delivery up to maxRetries+1 times. After failed attempt i
// it sleeps min(base*2^i, maxDelay) plus uniform jitter in [0.1, 0.3] of
// that delay. The last attempt's error is the one returned; there is no
// sleep after it.
func (d *Dispatcher) Send(ctx context.Context, req Request) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	}()

	attempts := d.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		err := d.transport.Send(ctx, req.Recipients, req.Subject, req.Body)
		if err == nil {
			metrics.NotificationAttempts.WithLabelValues(string(req.Kind), "success").Inc()
			if attempt > 0 {
				d.logger.Info("notification delivered after retry", map[string]interface{}{
					"kind":    req.Kind,
					"lead":    req.LeadUUID.String(),
					"attempt": attempt + 1,
				})
			}
			return nil
		}

		lastErr = err
		metrics.NotificationAttempts.WithLabelValues(string(req.Kind), "failure").Inc()

		if attempt == attempts-1 {
			break
		}

		delay := d.backoffDelay(attempt)
		jittered := delay + time.Duration(float64(delay)*(jitterMin+(jitterMax-jitterMin)*d.randFloat()))

		d.logger.Warn("notification attempt failed, backing off", map[string]interface{}{
			"kind":    req.Kind,
			"lead":    req.LeadUUID.String(),
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   err.Error(),
		})

		if err := d.sleep(ctx, jittered); err != nil {
			break
		}
	}

	metrics.NotificationExhausted.WithLabelValues(string(req.Kind)).Inc()
	d.logger.Error("notification retries exhausted", map[string]interface{}{
		"kind":     req.Kind,
		"lead":     req.LeadUUID.String(),
		"attempts": attempts,
		"error":    lastErr.Error(),
	})
	return apperrors.NewDeliveryFailedError(string(req.Kind), lastErr)
}

func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	delay := d.baseDelay << uint(attempt)
	if delay > d.maxDelay || delay <= 0 {
		delay = d.maxDelay
	}
	return delay
}

// sleepContext waits for d or until ctx is done, whichever comes first. The
// wait suspends only the goroutine handling this one dispatch.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
