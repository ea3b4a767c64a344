package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// DefaultSubject is the subject line of every dispatched notification.
const DefaultSubject = "ACP Cloud Health Alert"

// DispatchFunc is the callable form of a dispatch, used by middleware.
type DispatchFunc func(ctx context.Context, channelID, subject, message string) error

// DispatchMiddleware wraps dispatch execution. Middlewares are executed in registration order.
type DispatchMiddleware func(next DispatchFunc) DispatchFunc

// Option configures a Router instance.
type Option func(*Router)

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) Option {
	return func(r *Router) {
		if subject != "" {
			r.subject = subject
		}
	}
}

// WithDispatchMiddleware registers dispatch middleware.
func WithDispatchMiddleware(mw ...DispatchMiddleware) Option {
	return func(r *Router) { r.mw = append(r.mw, mw...) }
}

// WithDistinctServices collapses repeated services so each channel is notified once per event.
// By default every affected entity produces its own dispatch.
func WithDistinctServices() Option {
	return func(r *Router) { r.distinct = true }
}

// Result reports what a Route call did.
type Result struct {
	Services   []string `json:"services"`            // resolved services, in entity order
	Dispatched []string `json:"dispatched"`          // channel IDs notified, in dispatch order
	Unmatched  []string `json:"unmatched,omitempty"` // services with no channel
	Broadcast  bool     `json:"broadcast"`           // no service resolved, every channel notified
}

// Router resolves the services of an event and dispatches it to their channels.
// A Router is stateless between Route calls; the directory is rebuilt every time.
type Router struct {
	resolver   *Resolver
	directory  *Directory
	dispatcher health.Dispatcher
	naming     health.Naming

	subject  string
	mw       []DispatchMiddleware
	distinct bool
	logger   *zap.Logger
}

// New constructs a Router from its collaborators.
func New(
	tags health.TagLookup,
	lister health.ChannelLister,
	dispatcher health.Dispatcher,
	naming health.Naming,
	logger *zap.Logger,
	opts ...Option,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		resolver:   NewResolver(tags, logger.Named("resolver")),
		directory:  NewDirectory(lister, logger.Named("directory")),
		dispatcher: dispatcher,
		naming:     naming,
		subject:    DefaultSubject,
		logger:     logger,
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

// Resolver exposes the router's resolver.
func (r *Router) Resolver() *Resolver { return r.resolver }

// Channels builds the channel directory for the router's naming convention.
func (r *Router) Channels(ctx context.Context) (Channels, error) {
	return r.directory.Build(ctx, r.naming.ChannelPrefix())
}

// Route dispatches the event to the channel of every resolved service, or to every channel
// when no service resolves. Unmatched services are logged and skipped. The first collaborator
// failure stops routing; channels notified before it are not rolled back.
func (r *Router) Route(ctx context.Context, ev *health.Event) (Result, error) {
	var res Result

	if ev == nil {
		return res, fmt.Errorf("route: nil event: %w", berr.ErrMalformedEvent)
	}

	services, err := r.resolver.Resolve(ctx, ev)
	if err != nil {
		return res, err
	}

	if r.distinct {
		services = distinct(services)
	}

	res.Services = services

	channels, err := r.Channels(ctx)
	if err != nil {
		return res, err
	}

	payload, err := ev.Payload()
	if err != nil {
		return res, err
	}

	message := string(payload)
	dispatch := r.chain()

	if len(services) == 0 {
		res.Broadcast = true
		r.logger.Info("no services resolved, broadcasting",
			zap.String("event_arn", ev.EventArn()),
			zap.Int("channels", len(channels)))

		for _, id := range channels.IDs() {
			if err := r.send(ctx, dispatch, id, message); err != nil {
				return res, err
			}

			res.Dispatched = append(res.Dispatched, id)
		}

		return res, nil
	}

	for _, svc := range services {
		id, ok := channels[svc]
		if !ok {
			r.logger.Error("service not found in channel directory",
				zap.String("service", svc),
				zap.Strings("known_channels", channels.Names()))

			res.Unmatched = append(res.Unmatched, svc)

			continue
		}

		if err := r.send(ctx, dispatch, id, message); err != nil {
			return res, err
		}

		res.Dispatched = append(res.Dispatched, id)
	}

	return res, nil
}

func (r *Router) send(ctx context.Context, dispatch DispatchFunc, channelID, message string) error {
	if err := dispatch(ctx, channelID, r.subject, message); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if errors.Is(err, berr.ErrDispatchFailed) {
			return err
		}

		return fmt.Errorf("dispatch %s: %w", channelID, errors.Join(berr.ErrDispatchFailed, err))
	}

	return nil
}

// chain builds the dispatch call so the first registered middleware runs first.
func (r *Router) chain() DispatchFunc {
	final := r.dispatch
	for i := len(r.mw) - 1; i >= 0; i-- {
		final = r.mw[i](final)
	}

	return final
}

func (r *Router) dispatch(ctx context.Context, channelID, subject, message string) error {
	if r.dispatcher == nil {
		return fmt.Errorf("dispatch %s: %w", channelID, berr.ErrNotConfigured)
	}

	return r.dispatcher.Dispatch(ctx, channelID, subject, message)
}

func distinct(services []string) []string {
	seen := make(map[string]struct{}, len(services))
	out := make([]string, 0, len(services))

	for _, s := range services {
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
