// Package cli implements the healthctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
	"github.com/next-trace/scg-health-router/internal/app"
	"github.com/next-trace/scg-health-router/internal/config"
	"github.com/next-trace/scg-health-router/internal/logging"
	"github.com/next-trace/scg-health-router/notifier"
)

// Version is reported by --version.
var Version = "0.1.0"

// RouterFactory builds the router a command runs against.
type RouterFactory func(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	extra ...notifier.Option,
) (*notifier.Router, func(), error)

type env struct {
	v       *viper.Viper
	factory RouterFactory
	logger  *zap.Logger
	cfgFile string
}

// NewRootCommand returns the healthctl root command. A nil factory uses app.NewRouter.
func NewRootCommand(factory RouterFactory) *cobra.Command {
	if factory == nil {
		factory = app.NewRouter
	}

	e := &env{v: config.New(), factory: factory}

	root := &cobra.Command{
		Use:   "healthctl",
		Short: "Route AWS Health events to project service channels",
		Long: `healthctl resolves the PROJECT-SERVICE tag of the entities affected by an
AWS Health event and publishes the event to the matching notification channels.

Settings are read from the environment and may be overridden by flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("healthctl version %s\n", Version))

	pf := root.PersistentFlags()
	pf.StringVar(&e.cfgFile, "config", "", "config file (yaml, json or toml); keys match the env settings")
	pf.String("region", "", "AWS region of the channels (AWS_REGION)")
	pf.String("account", "", "AWS account of the channels (AWS_ACCOUNT_ID)")
	pf.String("partition", "", "AWS partition (AWS_PARTITION)")
	pf.String("topic-prefix", "", "channel name prefix (SNS_TOPIC_PREFIX)")
	pf.String("targets", "", "comma separated dispatch targets (DISPATCH_TARGETS)")
	pf.String("log-level", "", "log level (LOG_LEVEL)")

	for key, flag := range map[string]string{
		"region":           "region",
		"account":          "account",
		"partition":        "partition",
		"topic_prefix":     "topic-prefix",
		"dispatch_targets": "targets",
		"log_level":        "log-level",
	} {
		_ = e.v.BindPFlag(key, pf.Lookup(flag)) //nolint:errcheck // flag is registered above
	}

	root.AddCommand(newRouteCommand(e), newResolveCommand(e), newChannelsCommand(e))

	return root
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(nil).ExecuteContext(ctx)
}

// router loads the configuration and builds the router for a command. A dry run logs
// dispatches instead of publishing them.
func (e *env) router(cmd *cobra.Command, dryRun bool) (*notifier.Router, func(), error) {
	if e.cfgFile != "" {
		e.v.SetConfigFile(e.cfgFile)
		if err := e.v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("%w: read %s: %w", berr.ErrInvalidConfig, e.cfgFile, err)
		}
	}

	cfg, err := config.Load(e.v)
	if err != nil {
		return nil, nil, err
	}

	if e.logger == nil {
		if e.logger, err = logging.New(cfg.LogLevel); err != nil {
			return nil, nil, err
		}
	}

	var opts []notifier.Option
	if dryRun {
		opts = append(opts, notifier.WithDispatchMiddleware(notifier.DryRun(e.logger)))
	}

	return e.factory(cmd.Context(), cfg, e.logger, opts...)
}

// readEvent parses the event in path, or stdin when path is "-".
func readEvent(cmd *cobra.Command, path string) (*health.Event, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}

	return health.ParseEvent(data)
}
