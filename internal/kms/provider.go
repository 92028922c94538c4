// Package kms implements the KMS adapter capability of §4.2: encrypting
// and decrypting a value under a key identifier bound to an
// authenticated encryption context derived from the binding's scope.
package kms

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/timeoutdigital/envars/internal/model"
)

// EncryptionContext is the small {app, env?, location?} mapping passed
// to the KMS provider as authenticated additional data.
type EncryptionContext map[string]string

// Provider is the capability every concrete adapter (AWS, GCP)
// implements. keyID identifies the key; for AWS it may be omitted on
// Decrypt since the provider recovers it from ciphertext metadata, but
// GCP requires it on every call.
type Provider interface {
	Encrypt(ctx context.Context, keyID, plaintext string, ec EncryptionContext) (string, error)
	Decrypt(ctx context.Context, keyID, ciphertext string, ec EncryptionContext) (string, error)
}

// BuildContext derives the encryption context for a binding at scope,
// for application app.
func BuildContext(app string, scope model.Scope) EncryptionContext {
	ec := EncryptionContext{"app": app}
	if env, ok := scope.Environment(); ok {
		ec["env"] = env
	}
	if loc, ok := scope.Location(); ok {
		ec["location"] = loc
	}

	return ec
}

// canonicalJSON serializes ec with sorted keys, the form GCP KMS expects
// as additional authenticated data. encoding/json already marshals
// map[string]string keys in sorted order, so this is a direct Marshal.
func canonicalJSON(ec EncryptionContext) ([]byte, error) {
	ordered := make(map[string]string, len(ec))
	for k, v := range ec {
		ordered[k] = v
	}

	keys := make([]string, 0, len(ordered))
	for k := range ordered {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return json.Marshal(ordered)
}

// ForProvider selects the concrete adapter implied by a document's KMS
// key prefix.
func ForProvider(p model.Provider, aws, gcp Provider) (Provider, bool) {
	switch p {
	case model.ProviderAWS:
		return aws, aws != nil
	case model.ProviderGCP:
		return gcp, gcp != nil
	default:
		return nil, false
	}
}
