package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/next-trace/scg-health-router/adapters/fanout"
	"github.com/next-trace/scg-health-router/adapters/inmemory"
	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
	"github.com/next-trace/scg-health-router/internal/app"
	"github.com/next-trace/scg-health-router/internal/config"
)

func fakeConnectors(opened, closed *[]string, sinks map[string]*inmemory.Dispatcher) app.Connectors {
	conn := func(name string) app.Connector {
		return func(*config.Config) (health.Dispatcher, func(), error) {
			*opened = append(*opened, name)
			return sinks[name], func() { *closed = append(*closed, name) }, nil
		}
	}

	return app.Connectors{config.TargetNATS: conn("nats"), config.TargetKafka: conn("kafka")}
}

func TestNewDispatcher_SingleSNSTarget(t *testing.T) {
	primary := &inmemory.Dispatcher{}

	d, cleanup, err := app.NewDispatcher(primary, &config.Config{Targets: []string{"sns"}}, nil, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Same(t, primary, d)
}

func TestNewDispatcher_FansOutAndCleansUp(t *testing.T) {
	var opened, closed []string

	primary := &inmemory.Dispatcher{}
	sinks := map[string]*inmemory.Dispatcher{"nats": {}, "kafka": {}}

	cfg := &config.Config{Targets: []string{"sns", "nats", "kafka"}}

	d, cleanup, err := app.NewDispatcher(primary, cfg, fakeConnectors(&opened, &closed, sinks), zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &fanout.Dispatcher{}, d)

	require.NoError(t, d.Dispatch(t.Context(), "arn:aws:sns:eu-west-2:1:p_a", "s", "m"))
	assert.Len(t, primary.Sent(), 1)
	assert.Len(t, sinks["nats"].Sent(), 1)
	assert.Len(t, sinks["kafka"].Sent(), 1)

	cleanup()
	assert.Equal(t, []string{"nats", "kafka"}, opened)
	assert.Equal(t, []string{"kafka", "nats"}, closed)
}

func TestNewDispatcher_ConnectFailureClosesOpenedSinks(t *testing.T) {
	var opened, closed []string

	conns := fakeConnectors(&opened, &closed, map[string]*inmemory.Dispatcher{"nats": {}})
	conns[config.TargetKafka] = func(*config.Config) (health.Dispatcher, func(), error) {
		return nil, nil, errors.New("no brokers reachable")
	}

	_, _, err := app.NewDispatcher(&inmemory.Dispatcher{}, &config.Config{Targets: []string{"nats", "kafka"}}, conns, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"nats"}, closed)
}

func TestNewDispatcher_UnknownTarget(t *testing.T) {
	_, _, err := app.NewDispatcher(&inmemory.Dispatcher{}, &config.Config{Targets: []string{"rabbitmq"}}, app.Connectors{}, nil)
	require.ErrorIs(t, err, berr.ErrUnknownTarget)
}

func TestDefaultConnectors_ValidateEndpoints(t *testing.T) {
	conns := app.DefaultConnectors(zap.NewNop())

	for _, target := range []string{config.TargetNATS, config.TargetKafka, config.TargetRabbitMQ} {
		_, _, err := conns[target](&config.Config{})
		require.ErrorIs(t, err, berr.ErrInvalidConfig, target)
	}
}

func TestOptions(t *testing.T) {
	assert.Len(t, app.Options(&config.Config{Subject: "s"}), 1)
	assert.Len(t, app.Options(&config.Config{Subject: "s", DistinctServices: true}), 2)
}

func TestNewDispatcher_MirrorFailureDoesNotFailDelivery(t *testing.T) {
	primary := &inmemory.Dispatcher{}
	conns := app.Connectors{config.TargetNATS: func(*config.Config) (health.Dispatcher, func(), error) {
		return health.DispatcherFunc(func(context.Context, string, string, string) error {
			return errors.New("nats: connection closed")
		}), nil, nil
	}}

	d, cleanup, err := app.NewDispatcher(primary, &config.Config{Targets: []string{"sns", "nats"}}, conns, nil)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, d.Dispatch(t.Context(), "arn:aws:sns:eu-west-2:1:p_a", "s", "m"))
	assert.Len(t, primary.Sent(), 1)
}
