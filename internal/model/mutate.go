package model

import (
	"fmt"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// SetBindingOptions describes one add/update-binding request (§4.6).
type SetBindingOptions struct {
	Variable    string
	Scope       Scope
	Value       Value
	Description string
	Validation  string
}

// SetBinding inserts or replaces the binding at opts.Scope for
// opts.Variable, enforcing the structural invariants that must hold
// before a mutation is accepted:
//   - the variable's name is uppercase,
//   - any environment/location referenced by the scope already exists,
//   - a DEFAULT-scoped Secret is rejected,
//   - a new variable gets a description when DescriptionMandatory is set.
//
// Cross-context invariants (template cycles) are the caller's
// responsibility: SetBinding only performs the local checks that do not
// require enumerating every (environment, location) pair.
func (d *Document) SetBinding(opts SetBindingOptions) error {
	if !VariableNamePattern.MatchString(opts.Variable) {
		return fmt.Errorf("%w: %q must be uppercase", envarserr.ErrInvalidName, opts.Variable)
	}

	if env, ok := opts.Scope.Environment(); ok && !d.HasEnvironment(env) {
		return fmt.Errorf("%w: unknown environment %q", envarserr.ErrInvalidDocument, env)
	}

	if loc, ok := opts.Scope.Location(); ok && !d.HasLocationName(loc) {
		return fmt.Errorf("%w: unknown location %q", envarserr.ErrInvalidDocument, loc)
	}

	if opts.Value.IsSecret && opts.Scope.Kind() == ScopeDefault {
		return fmt.Errorf("%w: a DEFAULT-scoped value cannot be a secret", envarserr.ErrConfigError)
	}

	v, exists := d.Variables[opts.Variable]
	if !exists {
		if d.DescriptionMandatory && opts.Description == "" {
			return fmt.Errorf("%w: variable %q requires a description", envarserr.ErrConfigError, opts.Variable)
		}

		v = &Variable{Name: opts.Variable}
		d.Variables[opts.Variable] = v
	}

	if opts.Description != "" {
		v.Description = opts.Description
	}
	if opts.Validation != "" {
		v.Validation = opts.Validation
	}

	replaced := false
	for i, b := range d.Bindings {
		if b.Variable == opts.Variable && b.Scope.Equal(opts.Scope) {
			d.Bindings[i] = ValueBinding{Variable: opts.Variable, Scope: opts.Scope, Value: opts.Value}
			replaced = true

			break
		}
	}
	if !replaced {
		d.Bindings = append(d.Bindings, ValueBinding{
			Variable: opts.Variable,
			Scope:    opts.Scope,
			Value:    opts.Value,
		})
	}

	return nil
}
