package ports

import (
	"context"

	"github.com/jadavkeshav/log-management/internal/domain"
)

// LogStore persists events per tenant. Save failures are non-fatal to the
// delivery path; callers log and move on.
type LogStore interface {
	Save(ctx context.Context, event *domain.LogEvent) error
	Recent(ctx context.Context, tenantID string, limit int) ([]*domain.LogEvent, error)
}
