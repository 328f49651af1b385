package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

// Record inserts through the transaction in ctx, if any.
func (s *OutboxStore) Record(ctx context.Context, ev outbox.Event) error {
	headers := ev.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := Conn(ctx, s.pool).Exec(ctx, `INSERT INTO outbox
		(aggregate_type, aggregate_id, type, payload, headers, traceparent, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,'pending',$7)`,
		ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, headers, ev.Traceparent, createdAt)
	return pkgerrors.Wrap(err, "insert outbox event")
}

// LockBatch claims pending rows and rows whose lease ran out. SKIP LOCKED
// lets several relays share the table.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE outbox SET status = 'in_progress', relay_id = $1, lease_until = now() + $2::interval
		WHERE id IN (
			SELECT id FROM outbox
			WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $3
		)
		RETURNING id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count`,
		relayID, lease.String(), batchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "lock outbox batch")
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var (
			ev outbox.Event
			id int64
		)
		if err := rows.Scan(&id, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &ev.Headers, &ev.Traceparent, &ev.CreatedAt, &ev.RetryCount); err != nil {
			return nil, pkgerrors.Wrap(err, "scan outbox event")
		}
		ev.ID = strconv.FormatInt(id, 10)
		ev.Status = outbox.StatusInProgress
		ev.RelayID = relayID
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "iterate outbox batch")
	}
	if len(events) > 0 {
		s.log.Debug("outbox batch claimed", "relay_id", relayID, "count", len(events))
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []string) error {
	keys, err := parseIDs(ids)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE outbox SET status = 'sent', lease_until = NULL WHERE id = ANY($1)`, keys)
	return pkgerrors.Wrap(err, "mark outbox sent")
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	keys, err := parseIDs([]string{id})
	if err != nil {
		return err
	}
	var status outbox.Status
	err = s.pool.QueryRow(ctx, `UPDATE outbox
		SET retry_count = retry_count + 1,
			last_error = $2,
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			relay_id = NULL,
			lease_until = NULL
		WHERE id = $1
		RETURNING status`, keys[0], errMsg, outbox.MaxRetries).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(err, "mark outbox failed")
	}
	if status == outbox.StatusFailed {
		s.log.Warn("outbox event gave up", "event_id", id, "err", errMsg)
	}
	return nil
}

func parseIDs(ids []string) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "outbox id %q", id)
		}
		out = append(out, n)
	}
	return out, nil
}
