package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// DefaultExchange is the topic exchange notifications are published to.
const DefaultExchange = "health"

// Header keys set on every mirrored notification.
const (
	HeaderSubject = "x-health-subject"
	HeaderChannel = "x-health-channel"
)

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter mirrors notifications onto Exchange with the channel name as routing key.
type Adapter struct {
	Publisher Publisher
	Exchange  string
}

var _ health.Dispatcher = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p, Exchange: DefaultExchange} }

func (a *Adapter) Dispatch(ctx context.Context, channelID, subject, message string) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	msg := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: health.ChannelName(channelID),
		Body:       []byte(message),
		Headers:    map[string]string{HeaderSubject: subject, HeaderChannel: channelID},
	}

	if err := a.Publisher.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish %s: %w", msg.RoutingKey, errors.Join(berr.ErrDispatchFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq publish: %w", errors.Join(berr.ErrDispatchFailed, berr.ErrNotConfigured))
	}

	return nil
}

func toTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}

	h := amqp.Table{}
	for k, v := range headers {
		h[k] = v
	}

	return h
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			Headers:     toTable(m.Headers),
			Body:        m.Body,
			ContentType: "application/json",
		},
	)
}

// NewWithAMQPChannel wraps an already open channel. The exchange must exist.
func NewWithAMQPChannel(ch *amqp.Channel, exchange string) *Adapter {
	ad := New(amqpChannelPublisher{ch: ch})
	if exchange != "" {
		ad.Exchange = exchange
	}

	return ad
}
