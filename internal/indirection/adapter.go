// Package indirection implements the pluggable external value sources
// of §4.3: parameter store, secret manager, and stack export lookups
// performed against a value's indirection prefix.
package indirection

import (
	"context"
	"fmt"
	"strings"

	"github.com/timeoutdigital/envars/internal/envarserr"
	"github.com/timeoutdigital/envars/internal/model"
)

const (
	PrefixParameterStore     = "parameter_store:"
	PrefixGCPSecretManager   = "gcp_secret_manager:"
	PrefixCloudFormationExport = "cloudformation_export:"
)

// prefixProviders maps every known indirection prefix to the cloud
// provider it belongs to, used by the validator to enforce §3 invariant
// 4 (no cross-provider indirection).
var prefixProviders = map[string]model.Provider{
	PrefixParameterStore:       model.ProviderAWS,
	PrefixGCPSecretManager:     model.ProviderGCP,
	PrefixCloudFormationExport: model.ProviderAWS,
}

// Adapter fetches the value a key names from one external store.
type Adapter interface {
	Fetch(ctx context.Context, key string) (string, error)
}

// Match reports whether raw begins with a known indirection prefix,
// returning the prefix, the remainder (lookup key), and the provider it
// belongs to.
func Match(raw string) (prefix, key string, provider model.Provider, ok bool) {
	for p, prov := range prefixProviders {
		if strings.HasPrefix(raw, p) {
			return p, strings.TrimPrefix(raw, p), prov, true
		}
	}

	return "", "", model.ProviderNone, false
}

// KnownPrefixes returns every registered indirection prefix, for
// validator iteration.
func KnownPrefixes() []string {
	out := make([]string, 0, len(prefixProviders))
	for p := range prefixProviders {
		out = append(out, p)
	}

	return out
}

// ProviderForPrefix returns the cloud provider a prefix belongs to.
func ProviderForPrefix(prefix string) (model.Provider, bool) {
	p, ok := prefixProviders[prefix]
	return p, ok
}

// Registry dispatches a raw value to the adapter registered for its
// prefix.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register wires an adapter to handle lookups for prefix.
func (r *Registry) Register(prefix string, a Adapter) {
	r.adapters[prefix] = a
}

// Dereference checks whether raw carries a known indirection prefix; if
// so it fetches and returns the resolved value. ok is false when raw is
// not an indirection (the caller should leave the value untouched).
func (r *Registry) Dereference(ctx context.Context, raw string) (value string, ok bool, err error) {
	prefix, key, _, matched := Match(raw)
	if !matched {
		return "", false, nil
	}

	a, registered := r.adapters[prefix]
	if !registered {
		return "", true, fmt.Errorf("%w: no adapter registered for prefix %q", envarserr.ErrConfigError, prefix)
	}

	v, err := a.Fetch(ctx, key)
	if err != nil {
		return "", true, err
	}

	return v, true, nil
}
