package indirection

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// cloudformationClient narrows *cloudformation.Client to what
// CloudFormationExports needs, for fake substitution in tests.
type cloudformationClient interface {
	ListExports(
		ctx context.Context,
		in *cloudformation.ListExportsInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.ListExportsOutput, error)
}

// CloudFormationExports resolves cloudformation_export: indirections.
// The export list is paginated; it is enumerated once per resolution
// pass and cached, with the cache invalidated on any enumeration error
// so the next call retries rather than serving a partial result.
// Grounded on original_source/src/envars/aws_cloudformation.py.
type CloudFormationExports struct {
	client cloudformationClient

	mu    sync.Mutex
	cache map[string]string
}

func NewCloudFormationExports(client *cloudformation.Client) *CloudFormationExports {
	return &CloudFormationExports{client: client}
}

func (c *CloudFormationExports) Fetch(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		if err := c.populate(ctx); err != nil {
			c.cache = nil

			return "", fmt.Errorf("%w: listing stack exports: %v", envarserr.ErrResolutionError, err)
		}
	}

	v, ok := c.cache[name]
	if !ok {
		return "", fmt.Errorf("%w: export %q not found", envarserr.ErrResolutionError, name)
	}

	return v, nil
}

func (c *CloudFormationExports) populate(ctx context.Context) error {
	cache := map[string]string{}

	var nextToken *string
	for {
		out, err := c.client.ListExports(ctx, &cloudformation.ListExportsInput{NextToken: nextToken})
		if err != nil {
			return err
		}

		for _, e := range out.Exports {
			if e.Name != nil && e.Value != nil {
				cache[*e.Name] = *e.Value
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	c.cache = cache

	return nil
}
