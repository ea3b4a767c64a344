package sns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// Client is the subset of the SNS API used by the adapter. *sns.Client satisfies it.
type Client interface {
	ListTopics(ctx context.Context, in *awssns.ListTopicsInput, optFns ...func(*awssns.Options)) (*awssns.ListTopicsOutput, error)
	Publish(ctx context.Context, in *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// Adapter lists SNS topics as channels and publishes notifications to them.
type Adapter struct {
	Client Client
}

var (
	_ health.ChannelLister = (*Adapter)(nil)
	_ health.Dispatcher    = (*Adapter)(nil)
)

// New creates an SNS adapter over the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

// NewFromConfig creates an SNS adapter from an AWS configuration.
func NewFromConfig(cfg aws.Config) *Adapter { return New(awssns.NewFromConfig(cfg)) }

// ListChannels returns one page of topics. An empty token requests the first page.
func (a *Adapter) ListChannels(ctx context.Context, token string) (health.ChannelPage, error) {
	if err := a.ready(ctx, berr.ErrListChannelsFailed, "list topics"); err != nil {
		return health.ChannelPage{}, err
	}

	in := &awssns.ListTopicsInput{}
	if token != "" {
		in.NextToken = aws.String(token)
	}

	out, err := a.Client.ListTopics(ctx, in)
	if err != nil {
		return health.ChannelPage{}, wrap(err, berr.ErrListChannelsFailed, "list topics")
	}

	page := health.ChannelPage{
		Channels:  make([]health.Channel, 0, len(out.Topics)),
		NextToken: aws.ToString(out.NextToken),
	}

	for _, t := range out.Topics {
		if arn := aws.ToString(t.TopicArn); arn != "" {
			page.Channels = append(page.Channels, health.Channel{ID: arn})
		}
	}

	return page, nil
}

// Dispatch publishes message to the topic with the given subject.
func (a *Adapter) Dispatch(ctx context.Context, channelID, subject, message string) error {
	if err := a.ready(ctx, berr.ErrDispatchFailed, "publish"); err != nil {
		return err
	}

	in := &awssns.PublishInput{
		TopicArn: aws.String(channelID),
		Message:  aws.String(message),
	}
	if subject != "" {
		in.Subject = aws.String(subject)
	}

	if _, err := a.Client.Publish(ctx, in); err != nil {
		return wrap(err, berr.ErrDispatchFailed, "publish to "+channelID)
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context, base error, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("sns %s: %w", label, errors.Join(base, berr.ErrNotConfigured))
	}

	return nil
}

func wrap(err, base error, label string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("sns %s: %w", label, errors.Join(base, err))
}
