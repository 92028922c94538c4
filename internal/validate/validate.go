// Package validate implements the document validator of §4.5: a set of
// static and cross-context checks that never halt on the first
// violation, aggregating every failure found.
package validate

import (
	"fmt"
	"regexp"

	"github.com/timeoutdigital/envars/internal/envarserr"
	"github.com/timeoutdigital/envars/internal/indirection"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/template"
)

// Options tunes validation for callers that intentionally relax one
// check (the CLI's --ignore-default-secrets flag).
type Options struct {
	IgnoreDefaultSecrets bool
}

// Validate runs every check of §4.5 against doc and returns an
// aggregate *envarserr.ValidationFailure, or nil if doc is clean.
func Validate(doc *model.Document, opts Options) error {
	var failure envarserr.ValidationFailure

	checkBindingsReferenceVariables(doc, &failure)
	checkVariableNamesUppercase(doc, &failure)
	checkDescriptionsPresent(doc, &failure)
	if !opts.IgnoreDefaultSecrets {
		checkNoDefaultSecrets(doc, &failure)
	}
	checkProviderConsistency(doc, &failure)
	checkValidationPatterns(doc, &failure)
	checkTemplateCycles(doc, &failure)

	return failure.AsError()
}

func checkBindingsReferenceVariables(doc *model.Document, failure *envarserr.ValidationFailure) {
	for _, b := range doc.Bindings {
		if _, ok := doc.Variable(b.Variable); !ok {
			failure.Add(fmt.Sprintf("binding references undefined variable %q", b.Variable))
		}
	}
}

func checkVariableNamesUppercase(doc *model.Document, failure *envarserr.ValidationFailure) {
	for name := range doc.Variables {
		if !model.VariableNamePattern.MatchString(name) {
			failure.Add(fmt.Sprintf("variable name %q is not uppercase", name))
		}
	}
}

func checkDescriptionsPresent(doc *model.Document, failure *envarserr.ValidationFailure) {
	if !doc.DescriptionMandatory {
		return
	}

	for name, v := range doc.Variables {
		if v.Description == "" {
			failure.Add(fmt.Sprintf("variable %q is missing a required description", name))
		}
	}
}

func checkNoDefaultSecrets(doc *model.Document, failure *envarserr.ValidationFailure) {
	for _, b := range doc.Bindings {
		if b.Value.IsSecret && b.Scope.Kind() == model.ScopeDefault {
			failure.Add(fmt.Sprintf("variable %q has a DEFAULT-scoped secret", b.Variable))
		}
	}
}

func checkProviderConsistency(doc *model.Document, failure *envarserr.ValidationFailure) {
	docProvider := doc.Provider()
	if docProvider == model.ProviderNone {
		return
	}

	for _, b := range doc.Bindings {
		_, _, provider, ok := indirection.Match(b.Value.Raw)
		if ok && provider != docProvider {
			failure.Add(fmt.Sprintf(
				"variable %q uses a %s indirection but the document's kms_key implies provider %s",
				b.Variable, provider, docProvider))
		}
	}
}

func checkValidationPatterns(doc *model.Document, failure *envarserr.ValidationFailure) {
	for name, v := range doc.Variables {
		if v.Validation == "" {
			continue
		}

		re, err := regexp.Compile(v.Validation)
		if err != nil {
			failure.Add(fmt.Sprintf("variable %q has an invalid validation pattern: %v", name, err))
			continue
		}

		for _, b := range doc.BindingsFor(name) {
			if !re.MatchString(b.Value.Raw) {
				failure.Add(fmt.Sprintf("variable %q binding %s does not match its validation pattern",
					name, b.Scope.Kind()))
			}
		}
	}
}

// checkTemplateCycles enforces invariant 7: the template-dependency
// graph over effective bindings must be acyclic globally AND for every
// (environment, location) pair, since an override combination can
// introduce a cycle that no single scope shows on its own.
func checkTemplateCycles(doc *model.Document, failure *envarserr.ValidationFailure) {
	if err := CheckCycles(doc); err != nil {
		failure.Add(err.Error())
	}
}

// CheckCycles runs the cross-context cycle check on its own, for
// callers (mutation ops) that need to re-validate invariant 7 after a
// single binding change without running the full validator.
func CheckCycles(doc *model.Document) error {
	return cycleCheckForContexts(doc, allContexts(doc))
}

// allContexts enumerates every (environment, location) pair the document
// defines, plus the zero-value context representing the DEFAULT-only
// view.
func allContexts(doc *model.Document) []model.Context {
	contexts := []model.Context{{}}

	for _, env := range doc.Environments {
		contexts = append(contexts, model.Context{Environment: env.Name})

		for _, loc := range doc.Locations {
			contexts = append(contexts, model.Context{Environment: env.Name, Location: loc.Name})
		}
	}
	for _, loc := range doc.Locations {
		contexts = append(contexts, model.Context{Location: loc.Name})
	}

	return contexts
}

// cycleCheckForContexts runs the graph check for every context and
// returns the first failure found, naming the offending context.
func cycleCheckForContexts(doc *model.Document, contexts []model.Context) error {
	names := doc.SortedVariableNames()

	for _, ctx := range contexts {
		graph := template.NewGraph()

		for _, name := range names {
			b, ok := doc.GetBinding(name, ctx)
			if !ok {
				continue
			}

			graph.AddNode(name)

			tmpl, err := template.Parse(b.Value.Raw)
			if err != nil {
				continue // TemplateError surfaces during resolve; validation focuses on cycles here
			}

			for _, ref := range tmpl.ReferencedVariables() {
				graph.AddEdge(ref, name)
			}
		}

		if _, err := graph.TopoSort(); err != nil {
			label := contextLabel(ctx)
			return fmt.Errorf("template cycle in context %s: %v", label, err)
		}
	}

	return nil
}

func contextLabel(ctx model.Context) string {
	switch {
	case ctx.Environment != "" && ctx.Location != "":
		return fmt.Sprintf("(env=%s, loc=%s)", ctx.Environment, ctx.Location)
	case ctx.Environment != "":
		return fmt.Sprintf("(env=%s)", ctx.Environment)
	case ctx.Location != "":
		return fmt.Sprintf("(loc=%s)", ctx.Location)
	default:
		return "(default)"
	}
}
