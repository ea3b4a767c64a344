package notifier

import (
	"context"

	"go.uber.org/zap"
)

// DryRun logs each dispatch and never calls the next handler.
func DryRun(logger *zap.Logger) DispatchMiddleware {
	return func(_ DispatchFunc) DispatchFunc {
		return func(ctx context.Context, channelID, subject, message string) error {
			logger.Info("dry run, skipping dispatch",
				zap.String("channel", channelID),
				zap.String("subject", subject),
				zap.Int("bytes", len(message)))

			return ctx.Err()
		}
	}
}

// LogDispatch logs each dispatch and its outcome.
func LogDispatch(logger *zap.Logger) DispatchMiddleware {
	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, channelID, subject, message string) error {
			err := next(ctx, channelID, subject, message)
			if err != nil {
				logger.Error("dispatch failed", zap.String("channel", channelID), zap.Error(err))
				return err
			}

			logger.Info("dispatched notification", zap.String("channel", channelID))

			return nil
		}
	}
}
