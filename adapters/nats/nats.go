package nats

import (
	"context"
	"errors"
	"fmt"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// DefaultSubjectPrefix is the subject namespace notifications are mirrored under.
const DefaultSubjectPrefix = "health"

// Header keys set on every mirrored notification.
const (
	HeaderSubject = "Health-Subject"
	HeaderChannel = "Health-Channel"
)

// Client publishes one message and waits until the server has it or ctx ends.
type Client interface {
	Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error
}

// Adapter mirrors notifications onto NATS, one subject per channel:
// <SubjectPrefix>.<channel name>.
type Adapter struct {
	Client        Client
	SubjectPrefix string
}

var _ health.Dispatcher = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c, SubjectPrefix: DefaultSubjectPrefix} }

func (a *Adapter) Dispatch(ctx context.Context, channelID, subject, message string) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	natsSubject := a.subjectFor(channelID)
	headers := map[string]string{HeaderSubject: subject, HeaderChannel: channelID}

	if err := a.Client.Publish(ctx, natsSubject, []byte(message), headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats publish %s: %w", natsSubject, errors.Join(berr.ErrDispatchFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats publish: %w", errors.Join(berr.ErrDispatchFailed, berr.ErrNotConfigured))
	}

	return nil
}

func (a *Adapter) subjectFor(channelID string) string {
	name := health.ChannelName(channelID)
	if a.SubjectPrefix == "" {
		return name
	}

	return a.SubjectPrefix + "." + name
}
