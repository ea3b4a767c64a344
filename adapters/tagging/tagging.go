package tagging

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"

	berr "github.com/next-trace/scg-health-router/contract/errors"
	"github.com/next-trace/scg-health-router/contract/health"
)

// Client is the subset of the Resource Groups Tagging API used by the adapter.
// *resourcegroupstaggingapi.Client satisfies it.
type Client interface {
	GetResources(ctx context.Context, in *rgt.GetResourcesInput, optFns ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error)
}

// Adapter looks up resource tags by ARN.
type Adapter struct {
	Client Client
}

var _ health.TagLookup = (*Adapter)(nil)

// New creates a tagging adapter over the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

// NewFromConfig creates a tagging adapter from an AWS configuration.
func NewFromConfig(cfg aws.Config) *Adapter { return New(rgt.NewFromConfig(cfg)) }

// LookupTags returns the tag mappings AWS reports for the ARN, in response order.
func (a *Adapter) LookupTags(ctx context.Context, resourceARN string) ([]health.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.Client == nil {
		return nil, fmt.Errorf("tagging get resources: %w", errors.Join(berr.ErrTagLookupFailed, berr.ErrNotConfigured))
	}

	out, err := a.Client.GetResources(ctx, &rgt.GetResourcesInput{ResourceARNList: []string{resourceARN}})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("tagging get resources %s: %w", resourceARN, errors.Join(berr.ErrTagLookupFailed, err))
	}

	resources := make([]health.Resource, 0, len(out.ResourceTagMappingList))
	for _, m := range out.ResourceTagMappingList {
		tags := make(health.TagList, 0, len(m.Tags))
		for _, t := range m.Tags {
			tags = append(tags, health.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
		}

		resources = append(resources, health.Resource{ARN: aws.ToString(m.ResourceARN), Tags: tags})
	}

	return resources, nil
}
