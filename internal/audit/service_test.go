package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogRetryExhausted(context.Background(), 7, 1, "idem-1", "gave up after 3 attempts"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].IdempotencyKey != "idem-1" {
		t.Fatalf("expected idempotency key captured")
	}
	if evs[0].Type != EventTypeRetryExhausted {
		t.Fatalf("expected engine.retry_exhausted, got %q", evs[0].Type)
	}
	if evs[0].ID == "" {
		t.Fatalf("expected an id to be assigned")
	}
}

func TestService_LogConfigurationError(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogConfigurationError(context.Background(), -1, 2, "idem-2", "treasury wallet missing"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].Type != EventTypeConfigurationErr {
		t.Fatalf("expected 1 engine.configuration_error event, got %+v", evs)
	}
}
