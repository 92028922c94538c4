// Package cloudidentity implements §4.7: report the ambient cloud
// account/project id the process is currently running under, so a
// command can auto-select a document's location by id.
package cloudidentity

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/oauth2/google"

	"github.com/timeoutdigital/envars/internal/model"
)

// Probe reports the ambient cloud identity.
type Probe interface {
	// AccountID returns the calling process' cloud account or project id.
	AccountID(ctx context.Context) (string, error)
}

// AWSProbe queries STS GetCallerIdentity for the ambient account id.
type AWSProbe struct{}

func (AWSProbe) AccountID(ctx context.Context) (string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("querying AWS caller identity: %w", err)
	}

	if out.Account == nil {
		return "", fmt.Errorf("AWS caller identity response carried no account id")
	}

	return *out.Account, nil
}

// GCPProbe queries the ambient application-default credentials for the
// project id they were minted for.
type GCPProbe struct{}

func (GCPProbe) AccountID(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		return "", fmt.Errorf("finding GCP default credentials: %w", err)
	}

	if creds.ProjectID == "" {
		return "", fmt.Errorf("GCP default credentials carried no project id")
	}

	return creds.ProjectID, nil
}

// ForProvider selects the probe implied by p, or false if p names no
// cloud (a document with no kms_key has nothing to auto-detect).
func ForProvider(p model.Provider) (Probe, bool) {
	switch p {
	case model.ProviderAWS:
		return AWSProbe{}, true
	case model.ProviderGCP:
		return GCPProbe{}, true
	default:
		return nil, false
	}
}

// LocationByAmbientIdentity returns the location in doc whose id equals
// the ambient cloud account/project id, or false if none matches (or
// the document names no provider).
func LocationByAmbientIdentity(ctx context.Context, doc *model.Document) (model.Location, bool, error) {
	probe, ok := ForProvider(doc.Provider())
	if !ok {
		return model.Location{}, false, nil
	}

	return Locate(ctx, doc, probe)
}

// Locate is the probe-injectable core of LocationByAmbientIdentity,
// used directly in tests with a fake Probe.
func Locate(ctx context.Context, doc *model.Document, probe Probe) (model.Location, bool, error) {
	id, err := probe.AccountID(ctx)
	if err != nil {
		return model.Location{}, false, err
	}

	loc, found := doc.LocationByID(id)

	return loc, found, nil
}
