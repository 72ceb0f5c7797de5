package pipeline

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/domain"
	"github.com/jadavkeshav/log-management/internal/ports"
)

// RawLog is the producer payload as it arrives on the wire. Numeric fields
// are pointers so a missing field is distinguishable from a zero value.
type RawLog struct {
	IP         string `json:"ip"`
	Timestamp  string `json:"timestamp"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Protocol   string `json:"protocol"`
	StatusCode *int   `json:"statusCode"`
	BytesSent  *int64 `json:"bytesSent"`
	UserAgent  string `json:"userAgent"`
}

// ValidationError reports a missing or malformed required field. It is the
// only ingestion failure surfaced back to the producer.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid field %q", e.Field)
}

// Pipeline enriches, persists, scores, and fans out producer events.
// Persistence and scoring are best-effort: only validation failures abort
// the hot path.
type Pipeline struct {
	store     ports.LogStore
	scorer    ports.Scorer
	publisher ports.Publisher
	metrics   ports.Metrics
	logger    zerolog.Logger

	saveTimeout time.Duration
}

func New(store ports.LogStore, scorer ports.Scorer, publisher ports.Publisher, metrics ports.Metrics, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		scorer:      scorer,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger.With().Str("component", "pipeline").Logger(),
		saveTimeout: 5 * time.Second,
	}
}

// Ingest validates the raw payload, builds the immutable event, persists it
// fire-and-forget, waits for the scoring verdict (bounded by the scorer's
// deadline), and publishes the annotated event to the tenant's other
// sessions. A non-nil return is always a *ValidationError.
func (p *Pipeline) Ingest(ctx context.Context, tenantID string, raw RawLog, originID string) error {
	ts, err := p.validate(raw)
	if err != nil {
		p.metrics.IncCounter("logrelay_validation_errors_total", 1)
		return err
	}

	event := domain.NewLogEvent(tenantID, raw.IP, ts, raw.Method, raw.URL, raw.Protocol, *raw.StatusCode, *raw.BytesSent, raw.UserAgent)

	// Persistence never blocks or fails delivery.
	go p.save(event)

	annCh := p.scorer.ScoreAsync(event)

	var ann domain.Annotation
	select {
	case ann = <-annCh:
	case <-ctx.Done():
		ann = domain.Annotation{Err: "session closed"}
	}

	p.metrics.IncCounter("logrelay_events_ingested_total", 1)

	payload, err := json.Marshal(pushFrame{
		Type: "log",
		Log:  domain.AnnotatedEvent{LogEvent: *event, Annotation: ann},
	})
	if err != nil {
		// Absorbed: a broken frame must not fail the producer.
		p.logger.Error().Err(err).Msg("encode push frame")
		return nil
	}

	p.publisher.Publish(tenantID, payload, originID)
	return nil
}

type pushFrame struct {
	Type string                `json:"type"`
	Log  domain.AnnotatedEvent `json:"log"`
}

func (p *Pipeline) validate(raw RawLog) (time.Time, error) {
	if raw.IP == "" {
		return time.Time{}, &ValidationError{Field: "ip"}
	}
	if raw.Timestamp == "" {
		return time.Time{}, &ValidationError{Field: "timestamp"}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "timestamp"}
	}
	if raw.Method == "" {
		return time.Time{}, &ValidationError{Field: "method"}
	}
	if raw.URL == "" {
		return time.Time{}, &ValidationError{Field: "url"}
	}
	if raw.Protocol == "" {
		return time.Time{}, &ValidationError{Field: "protocol"}
	}
	if raw.StatusCode == nil {
		return time.Time{}, &ValidationError{Field: "statusCode"}
	}
	if raw.BytesSent == nil {
		return time.Time{}, &ValidationError{Field: "bytesSent"}
	}
	if raw.UserAgent == "" {
		return time.Time{}, &ValidationError{Field: "userAgent"}
	}
	return ts, nil
}

func (p *Pipeline) save(event *domain.LogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.saveTimeout)
	defer cancel()

	if err := p.store.Save(ctx, event); err != nil {
		p.metrics.IncCounter("logrelay_store_errors_total", 1)
		p.logger.Error().Err(err).Str("tenant", event.TenantID).Msg("persist log event")
	}
}
