package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func TestStatusReportsStoreAndJobs(t *testing.T) {
	svc := NewService("memory", []string{"hooks"}, nil)
	got := svc.Status(context.Background())
	if got["ok"] != true || got["store"] != "memory" {
		t.Fatalf("unexpected status: %v", got)
	}
}

func TestStatusFailsWhenDatabaseDown(t *testing.T) {
	svc := NewService("postgres", nil, fakePinger{err: errors.New("connection refused")})
	got := svc.Status(context.Background())
	if got["ok"] != false {
		t.Fatalf("expected ok=false, got %v", got)
	}
	if got["error"] != "connection refused" {
		t.Fatalf("unexpected error: %v", got["error"])
	}
}
