package inmemory

import (
	"context"
	"strconv"
	"sync"

	"github.com/next-trace/scg-health-router/contract/health"
)

// Notification is one recorded dispatch.
type Notification struct {
	ChannelID string
	Subject   string
	Message   string
}

// Dispatcher is a thread-safe in-memory implementation of health.Dispatcher.
// It records dispatched notifications for testing and examples.
type Dispatcher struct {
	mu            sync.Mutex
	Notifications []Notification
}

func (d *Dispatcher) Dispatch(ctx context.Context, channelID, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	d.Notifications = append(d.Notifications, Notification{ChannelID: channelID, Subject: subject, Message: message})
	d.mu.Unlock()

	return nil
}

// Sent returns a copy of the recorded notifications.
func (d *Dispatcher) Sent() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Notification(nil), d.Notifications...)
}

// Lister serves a fixed channel list in pages of PageSize (all at once when PageSize <= 0).
// Tokens are the decimal offset of the next page.
type Lister struct {
	mu       sync.Mutex
	Channels []string
	PageSize int
}

func (l *Lister) ListChannels(ctx context.Context, token string) (health.ChannelPage, error) {
	if err := ctx.Err(); err != nil {
		return health.ChannelPage{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(l.Channels) {
			return health.ChannelPage{}, &InvalidTokenError{Token: token}
		}

		start = n
	}

	end := len(l.Channels)
	if l.PageSize > 0 && start+l.PageSize < end {
		end = start + l.PageSize
	}

	page := health.ChannelPage{Channels: make([]health.Channel, 0, end-start)}
	for _, id := range l.Channels[start:end] {
		page.Channels = append(page.Channels, health.Channel{ID: id})
	}

	if end < len(l.Channels) {
		page.NextToken = strconv.Itoa(end)
	}

	return page, nil
}

// AddChannel registers a channel ID.
func (l *Lister) AddChannel(id string) {
	l.mu.Lock()
	l.Channels = append(l.Channels, id)
	l.mu.Unlock()
}

// InvalidTokenError reports a continuation token the Lister never issued.
type InvalidTokenError struct{ Token string }

func (e *InvalidTokenError) Error() string { return "inmemory: invalid continuation token " + e.Token }

// Tags is a thread-safe in-memory implementation of health.TagLookup keyed by ARN.
type Tags struct {
	mu        sync.Mutex
	Resources map[string][]health.Resource
	Lookups   []string
}

func (t *Tags) LookupTags(ctx context.Context, resourceARN string) ([]health.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.Lookups = append(t.Lookups, resourceARN)

	return t.Resources[resourceARN], nil
}

// Tag registers the tag set reported for an ARN.
func (t *Tags) Tag(resourceARN string, tags health.TagSet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Resources == nil {
		t.Resources = make(map[string][]health.Resource)
	}

	t.Resources[resourceARN] = append(t.Resources[resourceARN], health.Resource{ARN: resourceARN, Tags: tags})
}

// Adapter combines Dispatcher, Lister and Tags to satisfy every collaborator contract.
type Adapter struct {
	Dispatcher
	Lister
	Tags
}

var (
	_ health.Dispatcher    = (*Adapter)(nil)
	_ health.ChannelLister = (*Adapter)(nil)
	_ health.TagLookup     = (*Adapter)(nil)
)

// New creates a new in-memory adapter instance.
func New() *Adapter { return &Adapter{} }
