package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

type Outbox struct {
	mu     sync.Mutex
	seq    int64
	events []*outboxEntry
}

type outboxEntry struct {
	event      outbox.Event
	leaseUntil time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Record(_ context.Context, ev outbox.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	ev.ID = strconv.FormatInt(o.seq, 10)
	ev.Status = outbox.StatusPending
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	o.events = append(o.events, &outboxEntry{event: ev})
	return nil
}

func (o *Outbox) LockBatch(_ context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	var out []outbox.Event
	for _, e := range o.events {
		if len(out) == batchSize {
			break
		}
		claimable := e.event.Status == outbox.StatusPending ||
			(e.event.Status == outbox.StatusInProgress && now.After(e.leaseUntil))
		if !claimable {
			continue
		}
		e.event.Status = outbox.StatusInProgress
		e.event.RelayID = relayID
		e.leaseUntil = now.Add(lease)
		out = append(out, e.event)
	}
	return out, nil
}

func (o *Outbox) MarkSent(_ context.Context, ids []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, e := range o.events {
		if _, ok := want[e.event.ID]; ok {
			e.event.Status = outbox.StatusSent
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, e := range o.events {
		if e.event.ID != id {
			continue
		}
		e.event.RetryCount++
		e.event.LastError = &errMsg
		if e.event.RetryCount >= outbox.MaxRetries {
			e.event.Status = outbox.StatusFailed
		} else {
			e.event.Status = outbox.StatusPending
		}
	}
	return nil
}

// Events returns a snapshot of every recorded event.
func (o *Outbox) Events() []outbox.Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]outbox.Event, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.event)
	}
	return out
}
