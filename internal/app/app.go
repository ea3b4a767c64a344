// Package app wires the router collaborators from configuration.
package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/next-trace/scg-health-router/adapters/fanout"
	"github.com/next-trace/scg-health-router/adapters/kafka"
	"github.com/next-trace/scg-health-router/adapters/nats"
	"github.com/next-trace/scg-health-router/adapters/rabbitmq"
	"github.com/next-trace/scg-health-router/adapters/sns"
	"github.com/next-trace/scg-health-router/adapters/tagging"
	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
	"github.com/next-trace/scg-health-router/internal/config"
	"github.com/next-trace/scg-health-router/notifier"
)

// Connector opens a mirror sink and returns it with its cleanup.
type Connector func(cfg *config.Config) (health.Dispatcher, func(), error)

// Connectors maps a dispatch target to the function that opens it.
type Connectors map[string]Connector

// DefaultConnectors opens real NATS, Kafka and RabbitMQ connections. Connection events are
// logged to logger.
func DefaultConnectors(logger *zap.Logger) Connectors {
	if logger == nil {
		logger = zap.NewNop()
	}

	return Connectors{
		config.TargetNATS: func(cfg *config.Config) (health.Dispatcher, func(), error) {
			ad, cleanup, err := nats.NewWithNATS(nats.Config{
				URL:           cfg.NATS.URL,
				Name:          "scg-health-router",
				SubjectPrefix: cfg.NATS.SubjectPrefix,
				Logger:        logger.Named("nats"),
			})
			if err != nil {
				return nil, nil, err
			}

			return ad, cleanup, nil
		},
		config.TargetKafka: func(cfg *config.Config) (health.Dispatcher, func(), error) {
			ad, cleanup, err := kafka.NewWithKgo(kafka.Config{
				Brokers:     cfg.Kafka.Brokers,
				ClientID:    cfg.Kafka.ClientID,
				TopicPrefix: cfg.Kafka.TopicPrefix,
				Idempotent:  true,
			})
			if err != nil {
				return nil, nil, err
			}

			return ad, cleanup, nil
		},
		config.TargetRabbitMQ: func(cfg *config.Config) (health.Dispatcher, func(), error) {
			ad, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{
				URL:      cfg.RabbitMQ.URL,
				Exchange: cfg.RabbitMQ.Exchange,
				Logger:   logger.Named("rabbitmq"),
			})
			if err != nil {
				return nil, nil, err
			}

			return ad, cleanup, nil
		},
	}
}

// NewDispatcher builds the dispatcher for the configured targets. primary serves the sns
// target. Several targets are combined with a fan-out dispatcher in configuration order;
// mirror sinks are optional there, so their failures are logged and do not stop routing.
func NewDispatcher(
	primary health.Dispatcher,
	cfg *config.Config,
	conns Connectors,
	logger *zap.Logger,
) (health.Dispatcher, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		sinks    []fanout.Sink
		cleanups []func()
	)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	for _, target := range cfg.Targets {
		if target == config.TargetSNS {
			sinks = append(sinks, fanout.Sink{Name: target, Dispatcher: primary})
			continue
		}

		connect, ok := conns[target]
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("dispatch target %q: %w", target, berr.ErrUnknownTarget)
		}

		d, c, err := connect(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("dispatch target %q: %w", target, err)
		}

		sinks = append(sinks, fanout.Sink{Name: target, Dispatcher: d, Optional: true})
		if c != nil {
			cleanups = append(cleanups, c)
		}
	}

	if len(sinks) == 1 {
		return sinks[0].Dispatcher, cleanup, nil
	}

	return fanout.New(logger.Named("fanout"), sinks...), cleanup, nil
}

// Options translates configuration into router options.
func Options(cfg *config.Config) []notifier.Option {
	opts := []notifier.Option{notifier.WithSubject(cfg.Subject)}
	if cfg.DistinctServices {
		opts = append(opts, notifier.WithDistinctServices())
	}

	return opts
}

// NewRouter loads the AWS configuration and builds a Router over SNS, the tagging API and
// any configured mirror sinks. The cleanup closes mirror connections.
func NewRouter(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	extra ...notifier.Option,
) (*notifier.Router, func(), error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Naming.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}

	topics := sns.NewFromConfig(awsCfg)
	tags := tagging.NewFromConfig(awsCfg)

	dispatcher, cleanup, err := NewDispatcher(topics, cfg, DefaultConnectors(logger), logger)
	if err != nil {
		return nil, nil, err
	}

	opts := append(Options(cfg), extra...)
	r := notifier.New(tags, topics, dispatcher, cfg.Naming, logger, opts...)

	logger.Info("router configured",
		zap.String("channel_prefix", cfg.Naming.ChannelPrefix()),
		zap.Strings("targets", cfg.Targets))

	return r, cleanup, nil
}
