package kms

import (
	"context"
	"encoding/base64"
	"fmt"

	kmsapi "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// GCPProvider wraps the Cloud KMS client, grounded on
// original_source/src/envars/gcp_kms.py's canonical-JSON additional
// authenticated data contract.
type GCPProvider struct {
	client *kmsapi.KeyManagementClient
}

// NewGCPProvider dials Cloud KMS using application default credentials.
func NewGCPProvider(ctx context.Context) (*GCPProvider, error) {
	client, err := kmsapi.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: building GCP KMS client: %v", envarserr.ErrKmsError, err)
	}

	return &GCPProvider{client: client}, nil
}

// Encrypt calls Cloud KMS Encrypt against keyPath, the fully-qualified
// CryptoKey resource name (the document's kms_key value).
func (p *GCPProvider) Encrypt(ctx context.Context, keyPath, plaintext string, ec EncryptionContext) (string, error) {
	aad, err := canonicalJSON(ec)
	if err != nil {
		return "", fmt.Errorf("%w: encoding encryption context: %v", envarserr.ErrKmsError, err)
	}

	resp, err := p.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:                        keyPath,
		Plaintext:                   []byte(plaintext),
		AdditionalAuthenticatedData: aad,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", envarserr.ErrKmsError, err)
	}

	return base64.StdEncoding.EncodeToString(resp.Ciphertext), nil
}

// Decrypt calls Cloud KMS Decrypt. keyPath is mandatory on GCP, unlike
// the AWS adapter.
func (p *GCPProvider) Decrypt(ctx context.Context, keyPath, ciphertext string, ec EncryptionContext) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding: %v", envarserr.ErrDecryptError, err)
	}

	aad, err := canonicalJSON(ec)
	if err != nil {
		return "", fmt.Errorf("%w: encoding encryption context: %v", envarserr.ErrDecryptError, err)
	}

	resp, err := p.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:                        keyPath,
		Ciphertext:                  blob,
		AdditionalAuthenticatedData: aad,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", envarserr.ErrDecryptError, err)
	}

	return string(resp.Plaintext), nil
}
