package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	// TypeIteration is emitted after every query and sample update.
	TypeIteration = "loop.iteration"
	// TypeFinished is emitted once the loop stops.
	TypeFinished = "loop.finished"
)

// LoopEvent reports the progress of a learning run. Payload is the JSON
// encoding of a type-specific struct, stored verbatim by the Postgres sink.
type LoopEvent struct {
	ID        uuid.UUID       `json:"id"`
	RunID     uuid.UUID       `json:"run_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the payload into v.
func (e *LoopEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewLoopEvent marshals payload into a new event of the given type.
func NewLoopEvent(runID uuid.UUID, eventType string, payload any) (*LoopEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &LoopEvent{
		ID:        uuid.New(),
		RunID:     runID,
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler consumes loop events, e.g. the file and database sinks.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *LoopEvent) error
}

// EventEmitter is what the learning loop publishes to.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *LoopEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *LoopEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *LoopEvent) error {
	return f(ctx, event)
}
