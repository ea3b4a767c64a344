package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
)

const (
	exchangeKind       = "topic"
	defaultConnTimeout = 5 * time.Second
	minBackoff         = time.Second
	maxBackoff         = 30 * time.Second
)

// ErrNacked reports a publish the broker refused to confirm.
var ErrNacked = errors.New("rabbitmq: publish not confirmed by broker")

// Config describes the RabbitMQ connection the mirror sink publishes over.
type Config struct {
	URL         string
	Exchange    string
	ConnTimeout time.Duration
	Logger      *zap.Logger
}

// confirmingPublisher keeps one confirm-mode channel open, redialing with backoff whenever the
// connection drops. Publish blocks until the broker confirms the message.
type confirmingPublisher struct {
	cfg Config
	log *zap.Logger

	mu    sync.RWMutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	ready chan struct{} // closed once ch is usable

	done      chan struct{}
	closeOnce sync.Once
}

func newConfirmingPublisher(cfg Config) *confirmingPublisher {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &confirmingPublisher{
		cfg:   cfg,
		log:   log.With(zap.String("exchange", cfg.Exchange)),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go p.maintain()

	return p
}

func (p *confirmingPublisher) Publish(ctx context.Context, m PubMsg) error {
	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, m.Exchange, m.RoutingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      toTable(m.Headers),
			ContentType:  "application/json",
			Body:         m.Body,
		})
	if err != nil {
		return err
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}

	if !acked {
		return ErrNacked
	}

	return nil
}

// channel waits until a confirm-mode channel is available.
func (p *confirmingPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	for {
		p.mu.RLock()
		ch, ready := p.ch, p.ready
		p.mu.RUnlock()

		if ch != nil {
			return ch, nil
		}

		select {
		case <-ready:
		case <-p.done:
			return nil, fmt.Errorf("%w: rabbitmq publisher closed", berr.ErrDispatchFailed)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *confirmingPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-health-router"},
		Dial:       amqp.DefaultDial(p.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err == nil {
		err = ch.Confirm(false)
	}

	if err == nil {
		err = ch.ExchangeDeclare(p.cfg.Exchange, exchangeKind, true, false, false, false, nil)
	}

	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, ch, nil
}

func (p *confirmingPublisher) maintain() {
	backoff := minBackoff

	for {
		conn, ch, err := p.dial()
		if err != nil {
			wait := min(backoff+rand.N(backoff/2), maxBackoff)
			p.log.Warn("rabbitmq dial failed, retrying", zap.Duration("in", wait), zap.Error(err))

			t := time.NewTimer(wait)
			select {
			case <-p.done:
				t.Stop()
				return
			case <-t.C:
			}

			backoff = min(backoff*2, maxBackoff)

			continue
		}

		backoff = minBackoff
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))

		p.mu.Lock()
		select {
		case <-p.done:
			p.mu.Unlock()
			_ = conn.Close()

			return
		default:
		}

		p.conn, p.ch = conn, ch
		close(p.ready)
		p.mu.Unlock()

		p.log.Info("rabbitmq connected")

		select {
		case <-p.done:
			return
		case amqpErr := <-closed:
			p.log.Warn("rabbitmq connection lost", zap.Any("reason", amqpErr))

			p.mu.Lock()
			p.conn, p.ch = nil, nil
			p.ready = make(chan struct{})
			p.mu.Unlock()

			_ = conn.Close()
		}
	}
}

func (p *confirmingPublisher) close() {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.conn != nil {
			_ = p.conn.Close()
			p.conn, p.ch = nil, nil
		}
	})
}

// NewWithAMQPConn dials RabbitMQ in the background, declares the exchange and returns an
// Adapter whose publishes wait for broker confirms. The cleanup closes the connection.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrInvalidConfig)
	}

	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = defaultConnTimeout
	}

	pub := newConfirmingPublisher(cfg)
	ad := New(pub)
	ad.Exchange = cfg.Exchange

	return ad, pub.close, nil
}
