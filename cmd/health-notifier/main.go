package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/next-trace/scg-health-router/contract/health"
	"github.com/next-trace/scg-health-router/internal/app"
	"github.com/next-trace/scg-health-router/internal/config"
	"github.com/next-trace/scg-health-router/internal/logging"
	"github.com/next-trace/scg-health-router/notifier"
)

// router is the subset of *notifier.Router the handler needs.
type router interface {
	Route(ctx context.Context, ev *health.Event) (notifier.Result, error)
}

type handler struct {
	router router
	logger *zap.Logger
}

// Handle routes one EventBridge delivery. Any returned error fails the invocation.
func (h *handler) Handle(ctx context.Context, payload json.RawMessage) error {
	ev, err := health.ParseEvent(payload)
	if err != nil {
		return err
	}

	res, err := h.router.Route(ctx, ev)
	if err != nil {
		h.logger.Error("routing failed",
			zap.String("event_arn", ev.EventArn()),
			zap.Strings("dispatched", res.Dispatched),
			zap.Error(err))

		return err
	}

	h.logger.Info("event routed",
		zap.String("event_arn", ev.EventArn()),
		zap.Strings("services", res.Services),
		zap.Strings("dispatched", res.Dispatched),
		zap.Strings("unmatched", res.Unmatched),
		zap.Bool("broadcast", res.Broadcast))

	return nil
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // nothing to do on sync failure at exit

	instrument, err := notifier.Instrument(nil, nil)
	if err != nil {
		logger.Fatal("Failed to create instrumentation", zap.Error(err))
	}

	r, cleanup, err := app.NewRouter(context.Background(), cfg, logger,
		notifier.WithDispatchMiddleware(instrument, notifier.LogDispatch(logger.Named("dispatch"))),
	)
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}
	defer cleanup()

	h := &handler{router: r, logger: logger}
	lambda.Start(h.Handle)
}
