package kms

import (
	"context"
	"encoding/base64"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	kmslib "github.com/aws/aws-sdk-go/service/kms"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// AWSProvider wraps the AWS KMS v1 client, grounded on the teacher's
// chain/evm/provider/kms_signer.go client-construction pattern.
type AWSProvider struct {
	client *kmslib.KMS
}

// NewAWSProvider builds a provider for region, using the ambient AWS
// credential chain (environment, shared config, instance role).
func NewAWSProvider(region string) (*AWSProvider, error) {
	sess, err := session.NewSession(&awssdk.Config{Region: awssdk.String(region)})
	if err != nil {
		return nil, fmt.Errorf("%w: building AWS session: %v", envarserr.ErrKmsError, err)
	}

	return &AWSProvider{client: kmslib.New(sess)}, nil
}

func toAWSContext(ec EncryptionContext) map[string]*string {
	out := make(map[string]*string, len(ec))
	for k, v := range ec {
		out[k] = awssdk.String(v)
	}

	return out
}

// Encrypt calls kms:Encrypt. The caller-supplied keyID is required.
func (p *AWSProvider) Encrypt(ctx context.Context, keyID, plaintext string, ec EncryptionContext) (string, error) {
	out, err := p.client.EncryptWithContext(ctx, &kmslib.EncryptInput{
		KeyId:             awssdk.String(keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: toAWSContext(ec),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", envarserr.ErrKmsError, err)
	}

	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt calls kms:Decrypt. keyID is accepted for interface symmetry
// with the GCP adapter but is not sent: AWS recovers the key from the
// ciphertext's own metadata.
func (p *AWSProvider) Decrypt(ctx context.Context, _ string, ciphertext string, ec EncryptionContext) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding: %v", envarserr.ErrDecryptError, err)
	}

	out, err := p.client.DecryptWithContext(ctx, &kmslib.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: toAWSContext(ec),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", envarserr.ErrDecryptError, err)
	}

	return string(out.Plaintext), nil
}
