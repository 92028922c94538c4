// Package model defines the in-memory representation of an envars
// document: environments, locations, variables, and the scoped bindings
// between them.
package model

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// VariableNamePattern is the uppercase-alphabet contract of §3: a
// variable name starts with an uppercase letter followed only by
// uppercase letters, digits and underscores.
var VariableNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Environment carries only identity and an optional description.
type Environment struct {
	Name        string
	Description string
}

// Location is identified by a stable cloud account/project id and
// carries a human name used on the document surface plus an optional
// per-location KMS key override.
type Location struct {
	ID     string
	Name   string
	KMSKey string
}

// Variable is identified by name and optionally carries a description
// and a validation regular expression applied to every binding's raw
// value.
type Variable struct {
	Name        string
	Description string
	Validation  string
}

// ValueBinding is one (variable, scope, value) record.
type ValueBinding struct {
	Variable string
	Scope    Scope
	Value    Value
}

// Document is the root entity: the full configuration-as-code surface
// for one application.
type Document struct {
	App                  string
	KMSKey               string
	DescriptionMandatory bool

	Environments []Environment
	Locations    []Location
	Variables    map[string]*Variable
	Bindings     []ValueBinding
}

// NewDocument constructs an empty document, as produced by `init`.
func NewDocument(app string, descriptionMandatory bool) *Document {
	return &Document{
		App:                  app,
		DescriptionMandatory: descriptionMandatory,
		Variables:            map[string]*Variable{},
	}
}

// Provider derives the cloud provider this document's KMS key implies.
func (d *Document) Provider() Provider {
	return ProviderFromKMSKey(d.KMSKey)
}

func (d *Document) HasEnvironment(name string) bool {
	for _, e := range d.Environments {
		if e.Name == name {
			return true
		}
	}

	return false
}

func (d *Document) LocationByName(name string) (Location, bool) {
	for _, l := range d.Locations {
		if l.Name == name {
			return l, true
		}
	}

	return Location{}, false
}

func (d *Document) LocationByID(id string) (Location, bool) {
	for _, l := range d.Locations {
		if l.ID == id {
			return l, true
		}
	}

	return Location{}, false
}

func (d *Document) HasLocationName(name string) bool {
	_, ok := d.LocationByName(name)
	return ok
}

// KMSKeyFor returns the effective KMS key for a location name: the
// location's override if set, otherwise the document-wide key.
func (d *Document) KMSKeyFor(locationName string) string {
	if loc, ok := d.LocationByName(locationName); ok && loc.KMSKey != "" {
		return loc.KMSKey
	}

	return d.KMSKey
}

// AddEnvironment appends a new environment. It returns an error if an
// environment of that name already exists.
func (d *Document) AddEnvironment(env Environment) error {
	if d.HasEnvironment(env.Name) {
		return fmt.Errorf("%w: environment %q already exists", envarserr.ErrInvalidDocument, env.Name)
	}

	d.Environments = append(d.Environments, env)

	return nil
}

// RemoveEnvironment deletes an environment by name. Fails if any binding
// still references it.
func (d *Document) RemoveEnvironment(name string) error {
	for _, b := range d.Bindings {
		if env, ok := b.Scope.Environment(); ok && env == name {
			return fmt.Errorf("%w: environment %q is still referenced by variable %q",
				envarserr.ErrConfigError, name, b.Variable)
		}
	}

	for i, e := range d.Environments {
		if e.Name == name {
			d.Environments = append(d.Environments[:i], d.Environments[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("%w: environment %q does not exist", envarserr.ErrInvalidDocument, name)
}

// AddLocation appends a new location.
func (d *Document) AddLocation(loc Location) error {
	if d.HasLocationName(loc.Name) {
		return fmt.Errorf("%w: location %q already exists", envarserr.ErrInvalidDocument, loc.Name)
	}

	d.Locations = append(d.Locations, loc)

	return nil
}

// RemoveLocation deletes a location by name. Fails if any binding still
// references it.
func (d *Document) RemoveLocation(name string) error {
	for _, b := range d.Bindings {
		if loc, ok := b.Scope.Location(); ok && loc == name {
			return fmt.Errorf("%w: location %q is still referenced by variable %q",
				envarserr.ErrConfigError, name, b.Variable)
		}
	}

	for i, l := range d.Locations {
		if l.Name == name {
			d.Locations = append(d.Locations[:i], d.Locations[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("%w: location %q does not exist", envarserr.ErrInvalidDocument, name)
}

func (d *Document) Variable(name string) (*Variable, bool) {
	v, ok := d.Variables[name]
	return v, ok
}

// SortedVariableNames returns variable names in the order the writer and
// resolver both commit to.
func (d *Document) SortedVariableNames() []string {
	names := make([]string, 0, len(d.Variables))
	for name := range d.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// BindingsFor returns every binding recorded for a variable, in
// insertion order.
func (d *Document) BindingsFor(variable string) []ValueBinding {
	var out []ValueBinding
	for _, b := range d.Bindings {
		if b.Variable == variable {
			out = append(out, b)
		}
	}

	return out
}

// GetBinding implements Step A of the resolution engine: among the
// bindings for variable, select the most specific match for ctx in the
// order SPECIFIC(e,l) -> ENVIRONMENT(e) -> LOCATION(l) -> DEFAULT.
func (d *Document) GetBinding(variable string, ctx Context) (ValueBinding, bool) {
	var (
		best      ValueBinding
		bestRank  = 1 << 30
		found     bool
	)

	for _, b := range d.Bindings {
		if b.Variable != variable || !b.Scope.Matches(ctx) {
			continue
		}

		rank := b.Scope.precedence()
		if rank < bestRank {
			best, bestRank, found = b, rank, true
		}
	}

	return best, found
}
