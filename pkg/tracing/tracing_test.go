package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
)

func TestTraceparentRoundTrip(t *testing.T) {
	tp, err := Init(context.Background(), "pharmacy-test", "", logging.Discard())
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	header := Traceparent(ctx)
	require.NotEmpty(t, header)

	remote := trace.SpanContextFromContext(WithTraceparent(context.Background(), header))
	assert.Equal(t, span.SpanContext().TraceID(), remote.TraceID())
	assert.True(t, remote.IsRemote())

	headers := KafkaHeaders(ctx, map[string]string{"event_type": "order.created", TraceparentHeader: "stale"})
	require.Len(t, headers, 2)
	assert.Equal(t, "event_type", headers[0].Key)
	assert.Equal(t, TraceparentHeader, headers[1].Key)
	assert.Equal(t, header, string(headers[1].Value))

	consumed := trace.SpanContextFromContext(FromKafkaHeaders(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), consumed.TraceID())
}

func TestTraceparentWithoutSpan(t *testing.T) {
	assert.Empty(t, Traceparent(context.Background()))
	ctx := context.Background()
	assert.Equal(t, ctx, WithTraceparent(ctx, ""))
}

func TestMiddlewareExtractsTraceparent(t *testing.T) {
	tp, err := Init(context.Background(), "pharmacy-test", "", logging.Discard())
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	const header = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	var got trace.SpanContext
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceparentHeader, header)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got.TraceID().String())
	assert.True(t, got.IsRemote())
}
