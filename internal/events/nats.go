package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSEmitter publishes events as JSON messages on subjects of the form
// orchestration.<study_id>.<event>, where <event> is the suffix of the
// event type. Consumers subscribe with orchestration.<study_id>.* to follow
// one study, or orchestration.> to follow everything.
type NATSEmitter struct {
	nc *nats.Conn
}

// NewNATSEmitter connects to the given NATS URL.
func NewNATSEmitter(url string) (*NATSEmitter, error) {
	nc, err := nats.Connect(url, nats.Name("orchd"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSEmitter{nc: nc}, nil
}

// NewNATSEmitterConn wraps an existing connection. The caller keeps
// ownership of the connection.
func NewNATSEmitterConn(nc *nats.Conn) *NATSEmitter {
	return &NATSEmitter{nc: nc}
}

// Emit publishes the event. Publishing is asynchronous on the NATS client
// side, which keeps this call cheap inside the action path.
func (e *NATSEmitter) Emit(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := e.nc.Publish(e.subject(event), payload); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// subject derives the NATS subject from the event.
func (e *NATSEmitter) subject(event Event) string {
	study := event.StudyID
	if study == "" {
		study = "unknown"
	}
	// Token separators are not allowed inside a study id token.
	study = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(study)

	suffix := strings.TrimPrefix(event.Type, "orchestration.")
	return fmt.Sprintf("orchestration.%s.%s", study, suffix)
}

// Close drains the connection when owned by this emitter.
func (e *NATSEmitter) Close() {
	if e.nc != nil && !e.nc.IsClosed() {
		e.nc.Close()
	}
}
