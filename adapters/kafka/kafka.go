package kafka

import (
	"context"
	"errors"
	"fmt"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// Header keys set on every mirrored record.
const (
	HeaderSubject = "health-subject"
	HeaderChannel = "health-channel"
)

// Writer is a minimal Kafka-like writer interface.
// Users can adapt franz-go or any other client to this.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter mirrors notifications onto Kafka. The record topic is TopicPrefix followed by the
// channel name; the record key is the channel name so one channel stays on one partition.
type Adapter struct {
	Writer      Writer
	TopicPrefix string
}

var _ health.Dispatcher = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) Dispatch(ctx context.Context, channelID, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka publish: %w", errors.Join(berr.ErrDispatchFailed, berr.ErrNotConfigured))
	}

	name := health.ChannelName(channelID)
	topic := a.TopicPrefix + name
	headers := map[string]string{HeaderSubject: subject, HeaderChannel: channelID}

	if err := a.Writer.Write(ctx, topic, []byte(name), []byte(message), headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish write %q: %w", topic, errors.Join(berr.ErrDispatchFailed, err))
	}

	return nil
}
