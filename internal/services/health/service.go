package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB and anything else that can report liveness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	StoreKind string
	Jobs      []string
	DB        Pinger
}

// NewService constructs a new health service.
func NewService(storeKind string, jobs []string, db Pinger) *Service {
	return &Service{StoreKind: storeKind, Jobs: jobs, DB: db}
}

// Status reports the configured store and jobs. When a database is attached
// it is pinged and a failure flips ok to false.
func (s *Service) Status(ctx context.Context) map[string]any {
	out := map[string]any{"ok": true}
	if s == nil {
		return out
	}
	out["store"] = s.StoreKind
	out["jobs"] = s.Jobs
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			out["ok"] = false
			out["error"] = err.Error()
		}
	}
	return out
}
