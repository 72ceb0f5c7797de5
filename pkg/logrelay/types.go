package logrelay

import (
	"github.com/jadavkeshav/log-management/internal/app/pipeline"
	"github.com/jadavkeshav/log-management/internal/domain"
	"github.com/jadavkeshav/log-management/internal/ports"
)

// LogEvent is the enriched access-log record that flows through the relay.
// It mirrors internal/domain.LogEvent but is exported so custom adapters can
// reference it.
type LogEvent = domain.LogEvent

// Annotation carries the anomaly verdict attached to an event.
type Annotation = domain.Annotation

// AnnotatedEvent is a LogEvent combined with its Annotation, as pushed to
// subscribers.
type AnnotatedEvent = domain.AnnotatedEvent

// RawLog is the untrusted producer payload accepted by Runtime.Ingest and the
// websocket gateway.
type RawLog = pipeline.RawLog

// ValidationError is returned by ingestion when a required field is missing
// or malformed.
type ValidationError = pipeline.ValidationError

// LogStore persists events and serves the recent-history query.
type LogStore = ports.LogStore

// AuthValidator resolves an API key to a tenant or rejects it.
type AuthValidator = ports.AuthValidator

// Scorer asynchronously produces an anomaly verdict for an event.
type Scorer = ports.Scorer

// Subscriber is a delivery endpoint registered with the tenant registry.
type Subscriber = ports.Subscriber

// Publisher fans payloads out to a tenant's subscribers.
type Publisher = ports.Publisher

// Metrics receives counters, gauges, and latency observations.
type Metrics = ports.Metrics

// Credential validation failures, usable with errors.Is.
var (
	ErrInvalidCredential = ports.ErrInvalidCredential
	ErrCredentialRevoked = ports.ErrCredentialRevoked
	ErrCredentialExpired = ports.ErrCredentialExpired
)
