package domain

import "time"

// LogEvent is the canonical unit of traffic telemetry in the relay. It is
// immutable once constructed; scoring results are carried separately as an
// Annotation overlay rather than written back into the event.
type LogEvent struct {
	TenantID        string    `json:"tenantId"`
	SourceIP        string    `json:"ip"`
	Timestamp       time.Time `json:"timestamp"`
	Method          string    `json:"method"`
	URL             string    `json:"url"`
	Protocol        string    `json:"protocol"`
	StatusCode      int       `json:"statusCode"`
	BytesSent       int64     `json:"bytesSent"`
	UserAgent       string    `json:"userAgent"`
	URLLength       int       `json:"url_length"`
	URLDepth        int       `json:"url_depth"`
	NumEncodedChars int       `json:"num_encoded_chars"`
	NumSpecialChars int       `json:"num_special_chars"`
}

// Annotation is the scoring verdict attached to a delivered event. A
// fail-open annotation has IsAnomaly false, a nil score, and Err set to the
// reason scoring was skipped.
type Annotation struct {
	IsAnomaly    bool      `json:"is_anomaly"`
	AnomalyScore *float64  `json:"anomaly_score"`
	ScoredAt     time.Time `json:"scored_at,omitempty"`
	Err          string    `json:"error,omitempty"`
}

// AnnotatedEvent is a LogEvent with its scoring overlay, as pushed to
// dashboard subscribers.
type AnnotatedEvent struct {
	LogEvent
	Annotation
}

// EventKey is the composite identity used to correlate a scoring response
// back to the event that requested it. Exactly one correlation waiter is
// retained per key at any time.
type EventKey struct {
	TenantID  string
	SourceIP  string
	Timestamp string
	Method    string
	URL       string
}

// Key returns the correlation identity of the event. The timestamp is
// normalized to UTC RFC3339Nano so an event round-tripped through the
// upstream link keys identically.
func (e *LogEvent) Key() EventKey {
	return EventKey{
		TenantID:  e.TenantID,
		SourceIP:  e.SourceIP,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Method:    e.Method,
		URL:       e.URL,
	}
}

// NewLogEvent builds an immutable event for the tenant, deriving the URL
// feature columns used by the anomaly model.
func NewLogEvent(tenantID, sourceIP string, ts time.Time, method, url, protocol string, statusCode int, bytesSent int64, userAgent string) *LogEvent {
	return &LogEvent{
		TenantID:        tenantID,
		SourceIP:        sourceIP,
		Timestamp:       ts,
		Method:          method,
		URL:             url,
		Protocol:        protocol,
		StatusCode:      statusCode,
		BytesSent:       bytesSent,
		UserAgent:       userAgent,
		URLLength:       len(url),
		URLDepth:        urlDepth(url),
		NumEncodedChars: countEncodedChars(url),
		NumSpecialChars: countSpecialChars(url),
	}
}

// urlDepth counts non-empty path segments split on "/".
func urlDepth(url string) int {
	depth := 0
	start := 0
	for i := 0; i <= len(url); i++ {
		if i == len(url) || url[i] == '/' {
			if i > start {
				depth++
			}
			start = i + 1
		}
	}
	return depth
}

// countEncodedChars counts %XX hex escapes in the raw, still-encoded URL.
func countEncodedChars(url string) int {
	n := 0
	for i := 0; i+2 < len(url); i++ {
		if url[i] == '%' && isHex(url[i+1]) && isHex(url[i+2]) {
			n++
		}
	}
	return n
}

// countSpecialChars counts characters outside [A-Za-z0-9], including the
// path separators themselves.
func countSpecialChars(url string) int {
	n := 0
	for i := 0; i < len(url); i++ {
		c := url[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			n++
		}
	}
	return n
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
