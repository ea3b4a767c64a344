package health

import "context"

// Resource is one tagged resource returned by a TagLookup.
type Resource struct {
	ARN  string
	Tags TagSet
}

// TagLookup resolves the tags of a fully-qualified resource identifier.
// It may return zero, one or many resources.
type TagLookup interface {
	LookupTags(ctx context.Context, resourceARN string) ([]Resource, error)
}

// Channel is a notification destination visible to the caller.
type Channel struct {
	ID string
}

// ChannelPage is one page of a paginated channel listing. An empty NextToken ends the listing.
type ChannelPage struct {
	Channels  []Channel
	NextToken string
}

// ChannelLister enumerates channels one page at a time. The first call passes an empty token.
type ChannelLister interface {
	ListChannels(ctx context.Context, token string) (ChannelPage, error)
}

// Dispatcher publishes a message with a subject line to a channel.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, channelID, subject, message string) error
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, channelID, subject, message string) error

func (f DispatcherFunc) Dispatch(ctx context.Context, channelID, subject, message string) error {
	return f(ctx, channelID, subject, message)
}
