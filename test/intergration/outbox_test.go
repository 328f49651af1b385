//go:build integration

package intergration

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	orderdomain "github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
	orderkafka "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

func createTopic(t *testing.T, topic string) {
	t.Helper()
	conn, err := kafka.Dial("tcp", env.KAddr[0])
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func TestOutboxRelayPublishesOrderEvents(t *testing.T) {
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			topic := "pharmacy.it." + uuid.NewString()[:8]
			createTopic(t, topic)

			log := logging.Discard()
			writer := orderkafka.NewWriter(log, env.KAddr)
			defer writer.Close()
			relay := outbox.NewRelay(log, b.Outbox, outbox.NewDispatcher(log, writer, topic), "it-"+name)

			f := newFixture(b)
			p := f.product(t, 4)
			o, err := f.manager.CreateOrder(ctx, orderapp.CreateOrderInput{
				CustomerID:    f.customer(t),
				PaymentMethod: "card",
				Items:         []orderapp.LineItemInput{{ProductID: p.ID, Quantity: 1, UnitPriceCents: 450}},
			})
			require.NoError(t, err)

			relayCtx, stop := context.WithCancel(ctx)
			defer stop()
			go func() { _ = relay.Run(relayCtx) }()

			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:   env.KAddr,
				Topic:     topic,
				Partition: 0,
				MinBytes:  1,
				MaxBytes:  1 << 20,
			})
			defer reader.Close()

			for {
				msg, err := reader.ReadMessage(ctx)
				require.NoError(t, err)
				if string(msg.Key) != o.ID {
					continue
				}
				headers := map[string]string{}
				for _, h := range msg.Headers {
					headers[h.Key] = string(h.Value)
				}
				assert.Equal(t, orderdomain.EventOrderCreated, headers["event_type"])
				assert.Equal(t, o.ID, headers["order_id"])
				assert.Contains(t, string(msg.Value), p.ID)
				return
			}
		})
	}
}
