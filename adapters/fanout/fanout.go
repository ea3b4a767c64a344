package fanout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// Sink is a named Dispatcher. Failures of an Optional sink are logged, not returned, as long
// as some other sink accepted the notification.
type Sink struct {
	Name       string
	Dispatcher health.Dispatcher
	Optional   bool
}

// Dispatcher sends every notification to each sink in order.
// All sinks are attempted; required sink errors are aggregated with errors.Join.
type Dispatcher struct {
	sinks  []Sink
	logger *zap.Logger
}

var _ health.Dispatcher = (*Dispatcher)(nil)

// New constructs a fan-out Dispatcher. A nil logger discards optional sink failures.
func New(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (d *Dispatcher) Len() int { return len(d.sinks) }

func (d *Dispatcher) Dispatch(ctx context.Context, channelID, subject, message string) error {
	if len(d.sinks) == 0 {
		return fmt.Errorf("fanout dispatch %s: %w", channelID, errors.Join(berr.ErrDispatchFailed, berr.ErrNotConfigured))
	}

	var (
		required  []error
		optional  []error
		delivered int
	)

	for _, s := range d.sinks {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(required, err)...)
		}

		err := s.Dispatcher.Dispatch(ctx, channelID, subject, message)
		switch {
		case err == nil:
			delivered++
		case s.Optional:
			optional = append(optional, fmt.Errorf("sink %s: %w", s.Name, err))
		default:
			required = append(required, fmt.Errorf("sink %s: %w", s.Name, err))
		}
	}

	if delivered == 0 {
		return errors.Join(append(required, optional...)...)
	}

	for _, err := range optional {
		d.logger.Warn("optional sink failed", zap.String("channel", channelID), zap.Error(err))
	}

	return errors.Join(required...)
}
