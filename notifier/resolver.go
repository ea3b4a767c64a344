package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// arnPrefix marks an entity value as a fully-qualified resource identifier.
const arnPrefix = "arn:"

// Resolver maps the affected entities of an event to service identifiers.
type Resolver struct {
	tags   health.TagLookup
	logger *zap.Logger
}

// NewResolver constructs a Resolver. tags may be nil when no fallback lookup is available.
func NewResolver(tags health.TagLookup, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{tags: tags, logger: logger}
}

// Resolve returns the services of the affected entities in entity order, duplicates included.
// Entities that cannot be resolved, malformed tags included, are logged and skipped. Only a
// failing tag lookup is an error.
func (r *Resolver) Resolve(ctx context.Context, ev *health.Event) ([]string, error) {
	services := []string{}

	if ev == nil || ev.Health == nil || ev.Health.AffectedEntities == nil {
		r.logger.Error("cannot resolve services, affectedEntities missing from event",
			zap.String("event_arn", ev.EventArn()))

		return services, nil
	}

	for _, ent := range ev.Health.AffectedEntities {
		svc, err := r.resolveEntity(ctx, ent)
		if err != nil {
			return nil, err
		}

		if svc != "" {
			services = append(services, svc)
		}
	}

	return services, nil
}

func (r *Resolver) resolveEntity(ctx context.Context, ent health.Entity) (string, error) {
	log := r.logger.With(zap.String("entity", ent.EntityValue))

	if ent.TagsErr != nil {
		log.Error("entity has malformed tags, skipping", zap.Error(ent.TagsErr))
		return "", nil
	}

	tags := ent.Tags
	if tags == nil {
		log.Warn("tags not found on entity, searching manually")

		var err error
		if tags, err = r.lookup(ctx, ent.EntityValue, log); err != nil {
			return "", err
		}
	}

	if tags == nil {
		return "", nil
	}

	if tags.Len() == 0 {
		log.Error("entity has an empty tag set")
		return "", nil
	}

	svc, ok := health.ProjectService(tags)
	if !ok {
		log.Error("entity has no service tag",
			zap.String("key", health.ProjectServiceKey),
			zap.Any("tags", tags))

		return "", nil
	}

	log.Info("found service for entity", zap.String("service", svc))

	return svc, nil
}

func (r *Resolver) lookup(ctx context.Context, value string, log *zap.Logger) (health.TagSet, error) {
	if !strings.HasPrefix(value, arnPrefix) {
		log.Error("entity value not in ARN format, skipping tag retrieval")
		return nil, nil
	}

	if r.tags == nil {
		return nil, fmt.Errorf("lookup tags %s: %w", value, berr.ErrNotConfigured)
	}

	resources, err := r.tags.LookupTags(ctx, value)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		if errors.Is(err, berr.ErrTagLookupFailed) {
			return nil, err
		}

		return nil, fmt.Errorf("lookup tags %s: %w", value, errors.Join(berr.ErrTagLookupFailed, err))
	}

	if len(resources) == 0 {
		log.Info("tagging API returned no resources for ARN")
		return nil, nil
	}

	if resources[0].Tags == nil || resources[0].Tags.Len() == 0 {
		log.Info("tagging API returned no tags for ARN")
		return nil, nil
	}

	log.Info("found tags for entity", zap.Any("tags", resources[0].Tags))

	return resources[0].Tags, nil
}
