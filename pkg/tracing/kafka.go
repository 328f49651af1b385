package tracing

import (
	"context"
	"sort"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const TraceparentHeader = "traceparent"

// KafkaHeaders turns fields into message headers and adds the trace context
// of ctx. Propagated keys replace fields of the same name. Headers are sorted
// by key.
func KafkaHeaders(ctx context.Context, fields map[string]string) []kafka.Header {
	carrier := propagation.MapCarrier{}
	for k, v := range fields {
		carrier[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	keys := carrier.Keys()
	sort.Strings(keys)
	headers := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier[k])})
	}
	return headers
}

// FromKafkaHeaders returns ctx carrying the remote span found in headers.
func FromKafkaHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
