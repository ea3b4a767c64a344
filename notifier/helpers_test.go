package notifier_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/next-trace/scg-health-router/contract/health"
)

var testNaming = health.Naming{
	Region:  "eu-west-2",
	Account: "123456789012",
	Prefix:  "acp_health_status_",
}

const topicPrefix = "arn:aws:sns:eu-west-2:123456789012:acp_health_status_"

func loadEvent(t *testing.T, name string) *health.Event {
	t.Helper()

	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	ev, err := health.ParseEvent(b)
	require.NoError(t, err)

	return ev
}

func observedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

type fakeTags struct {
	calls     []string
	resources map[string][]health.Resource
	err       error
}

func (f *fakeTags) LookupTags(_ context.Context, arn string) ([]health.Resource, error) {
	f.calls = append(f.calls, arn)
	if f.err != nil {
		return nil, f.err
	}

	return f.resources[arn], nil
}

type fakeLister struct {
	pages  map[string]health.ChannelPage
	tokens []string
	err    error
}

func (f *fakeLister) ListChannels(_ context.Context, token string) (health.ChannelPage, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return health.ChannelPage{}, f.err
	}

	return f.pages[token], nil
}

// singlePage lists the given topics in one page.
func singlePage(ids ...string) *fakeLister {
	chs := make([]health.Channel, 0, len(ids))
	for _, id := range ids {
		chs = append(chs, health.Channel{ID: id})
	}

	return &fakeLister{pages: map[string]health.ChannelPage{"": {Channels: chs}}}
}

type sent struct {
	channel string
	subject string
	message string
}

type fakeDispatcher struct {
	calls  []sent
	failOn string
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, channelID, subject, message string) error {
	if channelID == f.failOn {
		return f.err
	}

	f.calls = append(f.calls, sent{channel: channelID, subject: subject, message: message})

	return nil
}

func (f *fakeDispatcher) channels() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.channel)
	}

	return out
}

func entity(value string, tags health.TagSet) health.Entity {
	return health.Entity{EntityValue: value, Tags: tags}
}

func eventWith(ents ...health.Entity) *health.Event {
	return health.NewEvent(health.Detail{EventArn: "arn:aws:health:eu-west-2::event/test", AffectedEntities: ents})
}

func tagMap(service string) health.TagMap {
	return health.TagMap{health.ProjectServiceKey: service}
}
