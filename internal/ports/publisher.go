package ports

// Subscriber is one delivery target for fan-out. Send must not block: it
// reports false when the frame was refused (session closed or its outbound
// buffer full), and the publisher skips the session silently.
type Subscriber interface {
	ID() string
	Send(payload []byte) bool
}

// Publisher fans a serialized frame out to every subscriber of the tenant,
// excluding the originating session. Delivery is best-effort by policy:
// slow subscribers drop frames rather than applying backpressure.
type Publisher interface {
	Publish(tenantID string, payload []byte, excludeID string)
}
