package model

import "strings"

// Provider identifies the cloud whose KMS/indirection services a document
// is bound to. A document's provider is derived once from its kms_key
// prefix and constrains which indirection prefixes its bindings may use.
type Provider string

const (
	ProviderNone Provider = ""
	ProviderAWS  Provider = "aws"
	ProviderGCP  Provider = "gcp"
)

const (
	AWSKMSKeyPrefix = "arn:aws:kms:"
	GCPKMSKeyPrefix = "projects/"
)

// ProviderFromKMSKey derives the cloud provider implied by a kms_key
// string. An empty or unrecognized key yields ProviderNone.
func ProviderFromKMSKey(kmsKey string) Provider {
	switch {
	case strings.HasPrefix(kmsKey, AWSKMSKeyPrefix):
		return ProviderAWS
	case strings.HasPrefix(kmsKey, GCPKMSKeyPrefix):
		return ProviderGCP
	default:
		return ProviderNone
	}
}
