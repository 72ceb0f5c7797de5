package ports

import "github.com/jadavkeshav/log-management/internal/domain"

// Scorer requests an anomaly verdict for one event. The returned channel is
// resolved exactly once, within the scorer's correlation deadline: either
// with a real verdict or with a fail-open annotation. It never blocks the
// caller indefinitely.
type Scorer interface {
	ScoreAsync(event *domain.LogEvent) <-chan domain.Annotation
}
