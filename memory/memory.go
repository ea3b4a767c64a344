package memory

import (
	"go.uber.org/zap"

	"github.com/next-trace/scg-health-router/adapters/inmemory"
	"github.com/next-trace/scg-health-router/contract/health"
	"github.com/next-trace/scg-health-router/notifier"
)

// New constructs a Router backed entirely by the in-memory adapter and returns it along with
// the adapter, so callers can register channels and tags and inspect dispatched notifications.
func New(naming health.Naming, logger *zap.Logger, opts ...notifier.Option) (*notifier.Router, *inmemory.Adapter) {
	ad := inmemory.New()
	r := notifier.New(&ad.Tags, &ad.Lister, &ad.Dispatcher, naming, logger, opts...)

	return r, ad
}
