// Package resolve implements the four-step resolution pipeline of §4.4:
// pick the most specific binding per variable, unwrap secrets, expand
// templates in dependency order, and dereference indirections.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/timeoutdigital/envars/internal/envarserr"
	"github.com/timeoutdigital/envars/internal/indirection"
	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/template"
)

const envarsEnvVar = "ENVARS_ENV"

// EnvironmentOrFallback returns explicit if set, otherwise the
// ENVARS_ENV process environment variable. Fails MissingEnv if neither
// is present.
func EnvironmentOrFallback(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fallback := os.Getenv(envarsEnvVar); fallback != "" {
		return fallback, nil
	}

	return "", envarserr.ErrMissingEnv
}

// Engine holds the adapters a resolution pass calls out to. A fully
// hermetic resolution (only plaintext, no indirections) never touches
// any of them.
type Engine struct {
	AWSKMS       kms.Provider
	GCPKMS       kms.Provider
	Indirections *indirection.Registry
}

// Result is the output of a resolution pass: an ordered mapping from
// variable name to final string, preserving the document's sorted
// declaration order.
type Result struct {
	Names  []string
	Values map[string]string
}

// Resolve runs Steps A-D against doc for envCtx. When decrypt is false,
// Secret bindings keep their opaque ciphertext tag rather than being
// unwrapped, for display-only use.
func (e *Engine) Resolve(ctx context.Context, doc *model.Document, envCtx model.Context, decrypt bool) (*Result, error) {
	present, selected := pickBindings(doc, envCtx)

	unwrapped, err := e.unwrapSecrets(ctx, doc, present, selected, decrypt)
	if err != nil {
		return nil, err
	}

	rendered, err := expandTemplates(present, unwrapped)
	if err != nil {
		return nil, err
	}

	final, err := e.dereferenceIndirections(ctx, present, rendered)
	if err != nil {
		return nil, err
	}

	return &Result{Names: present, Values: final}, nil
}

// pickBindings implements Step A.
func pickBindings(doc *model.Document, envCtx model.Context) ([]string, map[string]model.ValueBinding) {
	selected := map[string]model.ValueBinding{}

	var present []string
	for _, name := range doc.SortedVariableNames() {
		b, ok := doc.GetBinding(name, envCtx)
		if !ok {
			continue
		}
		selected[name] = b
		present = append(present, name)
	}

	return present, selected
}

// unwrapSecrets implements Step B.
func (e *Engine) unwrapSecrets(
	ctx context.Context,
	doc *model.Document,
	present []string,
	selected map[string]model.ValueBinding,
	decrypt bool,
) (map[string]string, error) {
	out := map[string]string{}

	for _, name := range present {
		b := selected[name]

		if !b.Value.IsSecret || !decrypt {
			out[name] = b.Value.Raw

			continue
		}

		key := doc.KMSKey
		if loc, ok := b.Scope.Location(); ok {
			key = doc.KMSKeyFor(loc)
		}
		if key == "" {
			return nil, envarserr.ForVariable(name, envarserr.ErrConfigError)
		}

		provider, ok := kms.ForProvider(model.ProviderFromKMSKey(key), e.AWSKMS, e.GCPKMS)
		if !ok {
			return nil, envarserr.ForVariable(name,
				fmt.Errorf("%w: no KMS provider configured for key %q", envarserr.ErrConfigError, key))
		}

		plain, err := provider.Decrypt(ctx, key, b.Value.Raw, kms.BuildContext(doc.App, b.Scope))
		if err != nil {
			return nil, envarserr.ForVariable(name, err)
		}

		out[name] = plain
	}

	return out, nil
}

// expandTemplates implements Step C: builds the reference graph over
// present variables, topologically sorts it (failing CycleDetected on a
// cycle), and renders each value once its dependencies are rendered.
func expandTemplates(present []string, unwrapped map[string]string) (map[string]string, error) {
	presentSet := make(map[string]bool, len(present))
	for _, n := range present {
		presentSet[n] = true
	}

	parsed := make(map[string]*template.Template, len(present))
	graph := template.NewGraph()

	for _, name := range present {
		graph.AddNode(name)

		tmpl, err := template.Parse(unwrapped[name])
		if err != nil {
			return nil, envarserr.ForVariable(name, fmt.Errorf("%w: %v", envarserr.ErrTemplateError, err))
		}
		parsed[name] = tmpl

		for _, ref := range tmpl.ReferencedVariables() {
			if !presentSet[ref] {
				return nil, envarserr.ForVariable(name,
					fmt.Errorf("%w: reference to undefined name %q", envarserr.ErrTemplateError, ref))
			}
			graph.AddEdge(ref, name)
		}
	}

	order, err := graph.TopoSort()
	if err != nil {
		var cycleErr *template.CycleError
		if errors.As(err, &cycleErr) {
			return nil, fmt.Errorf("%w: %s", envarserr.ErrCycleDetected, cycleErr.Error())
		}

		return nil, err
	}

	rendered := map[string]string{}
	for _, name := range order {
		out, err := parsed[name].Render(rendered, envLookup)
		if err != nil {
			return nil, envarserr.ForVariable(name, fmt.Errorf("%w: %v", envarserr.ErrTemplateError, err))
		}
		rendered[name] = out
	}

	return rendered, nil
}

// dereferenceIndirections implements Step D: a single, non-recursive
// pass over each rendered value.
func (e *Engine) dereferenceIndirections(
	ctx context.Context,
	present []string,
	rendered map[string]string,
) (map[string]string, error) {
	final := map[string]string{}

	for _, name := range present {
		v := rendered[name]

		resolvedValue, matched, err := e.Indirections.Dereference(ctx, v)
		if err != nil {
			return nil, envarserr.ForVariable(name, err)
		}

		if matched {
			final[name] = resolvedValue
		} else {
			final[name] = v
		}
	}

	return final, nil
}

func envLookup(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}

	return def
}
