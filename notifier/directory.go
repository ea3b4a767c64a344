package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// Channels maps a short name (channel ID minus the naming prefix) to the full channel ID.
type Channels map[string]string

// Names returns the short names in sorted order.
func (c Channels) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// IDs returns the full channel IDs in sorted order.
func (c Channels) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, id := range c {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Directory enumerates the channels that follow the naming convention.
type Directory struct {
	lister health.ChannelLister
	logger *zap.Logger
}

// NewDirectory constructs a Directory over a ChannelLister.
func NewDirectory(lister health.ChannelLister, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Directory{lister: lister, logger: logger}
}

// Build walks every page of the listing and returns the channels whose ID starts with prefix.
// The result is only returned once the listing is exhausted; any failure discards it.
func (d *Directory) Build(ctx context.Context, prefix string) (Channels, error) {
	if d.lister == nil {
		return nil, fmt.Errorf("list channels: %w", berr.ErrNotConfigured)
	}

	channels := make(Channels)
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := d.lister.ListChannels(ctx, token)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}

			if errors.Is(err, berr.ErrListChannelsFailed) {
				return nil, err
			}

			return nil, fmt.Errorf("list channels: %w", errors.Join(berr.ErrListChannelsFailed, err))
		}

		for _, ch := range page.Channels {
			if !strings.HasPrefix(ch.ID, prefix) {
				continue
			}

			d.logger.Debug("found health channel", zap.String("channel", ch.ID))
			channels[ch.ID[len(prefix):]] = ch.ID
		}

		if page.NextToken == "" {
			return channels, nil
		}

		token = page.NextToken
	}
}
