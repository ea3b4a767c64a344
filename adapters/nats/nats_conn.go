package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
)

// Default connection settings for the mirror sink.
const (
	DefaultConnTimeout   = 5 * time.Second
	DefaultMaxReconnects = 10
)

// Config describes the NATS connection the mirror sink publishes over.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	ConnTimeout   time.Duration
	MaxReconnects int
	Logger        *zap.Logger
}

type conn struct{ nc *nats.Conn }

func (c conn) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data

	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	return c.nc.FlushWithContext(ctx)
}

// NewWithNATS connects to NATS and returns an Adapter and a cleanup that drains the connection.
func NewWithNATS(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", berr.ErrInvalidConfig)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = DefaultConnTimeout
	}

	reconnects := cfg.MaxReconnects
	if reconnects == 0 {
		reconnects = DefaultMaxReconnects
	}

	opts := []nats.Option{
		nats.Timeout(timeout),
		nats.MaxReconnects(reconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrlRedacted()))
		}),
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect: %w", berr.ErrDispatchFailed, err)
	}

	ad := New(conn{nc: nc})
	if cfg.SubjectPrefix != "" {
		ad.SubjectPrefix = cfg.SubjectPrefix
	}

	cleanup := func() {
		if !nc.IsClosed() {
			if err := nc.Drain(); err != nil {
				log.Warn("nats drain failed", zap.Error(err))
				nc.Close()
			}
		}
	}

	return ad, cleanup, nil
}
