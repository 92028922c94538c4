package indirection

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// ssmClient is the subset of the SSM v2 client ParameterStore needs,
// narrowed for fake substitution in tests.
type ssmClient interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore resolves parameter_store: indirections. Grounded on
// original_source/src/envars/aws_ssm.py, but unlike that implementation
// a missing parameter is always a ResolutionError, never a nil/empty
// value (per spec.md §4.3).
type ParameterStore struct {
	client ssmClient
}

func NewParameterStore(client *ssm.Client) *ParameterStore {
	return &ParameterStore{client: client}
}

func (p *ParameterStore) Fetch(ctx context.Context, name string) (string, error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: parameter %q not found", envarserr.ErrResolutionError, name)
		}

		return "", fmt.Errorf("%w: parameter %q: %v", envarserr.ErrResolutionError, name, err)
	}

	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: parameter %q not found", envarserr.ErrResolutionError, name)
	}

	return *out.Parameter.Value, nil
}
