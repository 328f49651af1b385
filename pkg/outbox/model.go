package outbox

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is one row of the transactional outbox. ID is assigned by the store.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// Recorder appends an event in the same unit of work as the state change
// that produced it.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// MaxRetries is how many failed dispatches an event gets before it stays failed.
const MaxRetries = 5
