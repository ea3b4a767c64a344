package notifier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/notifier"
)

func TestInstrument_RecordsSpansAndCounts(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mw, err := notifier.Instrument(tp, mp)
	require.NoError(t, err)

	disp := &fakeDispatcher{failOn: topicPrefix + "svc-b", err: errors.New("throttled")}
	lister := singlePage(topicPrefix+"svc-a", topicPrefix+"svc-b")
	r := notifier.New(nil, lister, disp, testNaming, zap.NewNop(), notifier.WithDispatchMiddleware(mw))

	_, err = r.Route(t.Context(), eventWith(
		entity("i-1", tagMap("svc-a")),
		entity("i-2", tagMap("svc-b")),
	))
	require.ErrorIs(t, err, berr.ErrDispatchFailed)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "notifier.dispatch", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("channel.name", "svc-a"))
	assert.Equal(t, codes.Error, ended[1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "health_router.dispatches", m.Name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("outcome")
		byOutcome[v.AsString()] += dp.Value
	}

	assert.Equal(t, map[string]int64{"ok": 1, "error": 1}, byOutcome)
}

func TestInstrument_DefaultsToGlobalProviders(t *testing.T) {
	mw, err := notifier.Instrument(nil, nil)
	require.NoError(t, err)

	disp := &fakeDispatcher{}
	r := notifier.New(nil, singlePage(topicPrefix+"svc-a"), disp, testNaming, zap.NewNop(),
		notifier.WithDispatchMiddleware(mw))

	_, err = r.Route(t.Context(), eventWith(entity("i-1", tagMap("svc-a"))))
	require.NoError(t, err)
	assert.Equal(t, []string{topicPrefix + "svc-a"}, disp.channels())
}
