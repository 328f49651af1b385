package mongodb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

type outboxDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	AggregateType string             `bson:"aggregate_type"`
	AggregateID   string             `bson:"aggregate_id"`
	Type          string             `bson:"type"`
	Payload       []byte             `bson:"payload"`
	Headers       map[string]string  `bson:"headers,omitempty"`
	Traceparent   string             `bson:"traceparent,omitempty"`
	Status        string             `bson:"status"`
	RelayID       string             `bson:"relay_id,omitempty"`
	LeaseUntil    time.Time          `bson:"lease_until,omitempty"`
	RetryCount    int                `bson:"retry_count"`
	LastError     *string            `bson:"last_error,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func (d outboxDoc) event() outbox.Event {
	return outbox.Event{
		ID:            d.ID.Hex(),
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		Type:          d.Type,
		Payload:       d.Payload,
		Headers:       d.Headers,
		Traceparent:   d.Traceparent,
		CreatedAt:     d.CreatedAt,
		Status:        outbox.Status(d.Status),
		RelayID:       d.RelayID,
		RetryCount:    d.RetryCount,
		LastError:     d.LastError,
	}
}

// OutboxStore keeps events in the outbox collection. ObjectIDs grow with
// insertion time, so sorting by _id relays in order.
type OutboxStore struct {
	log        *slog.Logger
	collection *mongo.Collection
}

func NewOutboxStore(log *slog.Logger, db *mongo.Database) *OutboxStore {
	return &OutboxStore{log: log, collection: db.Collection(CollectionOutbox)}
}

func (s *OutboxStore) Record(ctx context.Context, ev outbox.Event) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.collection.InsertOne(ctx, outboxDoc{
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		Type:          ev.Type,
		Payload:       ev.Payload,
		Headers:       ev.Headers,
		Traceparent:   ev.Traceparent,
		Status:        string(outbox.StatusPending),
		CreatedAt:     createdAt,
	})
	return pkgerrors.Wrap(err, "insert outbox event")
}

// LockBatch claims events one at a time with FindOneAndUpdate; each claim is
// atomic, so concurrent relays never take the same event.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	now := time.Now().UTC()
	filter := bson.M{"$or": bson.A{
		bson.M{"status": string(outbox.StatusPending)},
		bson.M{"status": string(outbox.StatusInProgress), "lease_until": bson.M{"$lt": now}},
	}}
	update := bson.M{"$set": bson.M{
		"status":      string(outbox.StatusInProgress),
		"relay_id":    relayID,
		"lease_until": now.Add(lease),
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var events []outbox.Event
	for len(events) < batchSize {
		var doc outboxDoc
		err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				break
			}
			return events, pkgerrors.Wrap(err, "claim outbox event")
		}
		events = append(events, doc.event())
	}
	if len(events) > 0 {
		s.log.Debug("outbox batch claimed", "relay_id", relayID, "count", len(events))
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []string) error {
	oids, err := objectIDs(ids)
	if err != nil {
		return err
	}
	_, err = s.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"status": string(outbox.StatusSent)}, "$unset": bson.M{"lease_until": ""}},
	)
	return pkgerrors.Wrap(err, "mark outbox sent")
}

// MarkFailed uses an update pipeline so the retry check reads the
// incremented counter in the same write.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	oids, err := objectIDs([]string{id})
	if err != nil {
		return err
	}
	next := bson.M{"$add": bson.A{"$retry_count", 1}}
	_, err = s.collection.UpdateOne(ctx, bson.M{"_id": oids[0]}, mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"retry_count": next,
			"last_error":  errMsg,
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{next, outbox.MaxRetries}},
				string(outbox.StatusFailed),
				string(outbox.StatusPending),
			}},
		}}},
		{{Key: "$unset", Value: bson.A{"relay_id", "lease_until"}}},
	})
	return pkgerrors.Wrap(err, "mark outbox failed")
}

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "outbox id %q", id)
		}
		out = append(out, oid)
	}
	return out, nil
}
