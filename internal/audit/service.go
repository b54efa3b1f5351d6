package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal operational events raised by the transaction
// engine. Audit logging is always best-effort: callers must not let an
// audit failure fail the engine operation that triggered it.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogRetryExhausted records that the engine gave up retrying an operation
// after exhausting its configured retry budget (spec §4.5.4, §10.6).
func (s *Service) LogRetryExhausted(ctx context.Context, principalID int64, assetTypeID int, idempotencyKey, message string) error {
	return s.Append(ctx, Event{
		Type:           EventTypeRetryExhausted,
		PrincipalID:    principalID,
		AssetTypeID:    assetTypeID,
		IdempotencyKey: idempotencyKey,
		Message:        message,
	})
}

// LogConfigurationError records a missing-system-wallet or similar
// provisioning defect surfaced as a ConfigurationError.
func (s *Service) LogConfigurationError(ctx context.Context, principalID int64, assetTypeID int, idempotencyKey, message string) error {
	return s.Append(ctx, Event{
		Type:           EventTypeConfigurationErr,
		PrincipalID:    principalID,
		AssetTypeID:    assetTypeID,
		IdempotencyKey: idempotencyKey,
		Message:        message,
	})
}

// LogDeadlineExceeded records that the request's context deadline elapsed
// before the engine could commit.
func (s *Service) LogDeadlineExceeded(ctx context.Context, principalID int64, assetTypeID int, idempotencyKey string) error {
	return s.Append(ctx, Event{
		Type:           EventTypeDeadlineExceeded,
		PrincipalID:    principalID,
		AssetTypeID:    assetTypeID,
		IdempotencyKey: idempotencyKey,
		Message:        "context deadline exceeded before commit",
	})
}
