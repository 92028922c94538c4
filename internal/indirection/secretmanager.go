package indirection

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// SecretManager resolves gcp_secret_manager: indirections. Grounded on
// original_source/src/envars/gcp_secret_manager.py.
type SecretManager struct {
	client *secretmanager.Client
}

func NewSecretManager(client *secretmanager.Client) *SecretManager {
	return &SecretManager{client: client}
}

func (s *SecretManager) Fetch(ctx context.Context, versionName string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: versionName,
	})
	if err != nil {
		return "", fmt.Errorf("%w: secret %q: %v", envarserr.ErrResolutionError, versionName, err)
	}

	if resp.Payload == nil {
		return "", fmt.Errorf("%w: secret %q has no payload", envarserr.ErrResolutionError, versionName)
	}

	return string(resp.Payload.Data), nil
}
