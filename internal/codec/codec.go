// Package codec loads and writes the two-section envars document format
// (§4.1) using yaml.v3's node tree rather than a plain Unmarshal, since
// the contract needs duplicate-key rejection, insertion-order-preserving
// location lists, and a custom !secret scalar tag -- none of which
// survive a generic map decode.
package codec

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timeoutdigital/envars/internal/envarserr"
	"github.com/timeoutdigital/envars/internal/model"
)

const secretTag = "!secret"

const (
	keyDescription = "description"
	keyValidation  = "validation"
	keyDefault     = "default"
)

// Load reads an envars document from path. A missing or empty file
// loads to an empty model, per §4.1's "empty documents load to an empty
// model" contract -- callers distinguish "file absent" themselves via
// os.Stat if that matters to them.
func Load(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewDocument("", false), nil
		}

		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return Decode(data)
}

// Decode parses raw YAML bytes into a Document.
func Decode(data []byte) (*model.Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return model.NewDocument("", false), nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", envarserr.ErrInvalidDocument, err)
	}

	if err := checkNoDuplicateKeys(&root); err != nil {
		return nil, err
	}

	if len(root.Content) == 0 {
		return model.NewDocument("", false), nil
	}

	return decodeDocument(root.Content[0])
}

// checkNoDuplicateKeys rejects a duplicate key at any mapping nesting
// level, the structural invariant a plain yaml.Unmarshal into a map
// would silently paper over.
func checkNoDuplicateKeys(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := checkNoDuplicateKeys(c); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		seen := map[string]bool{}
		for i := 0; i < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if seen[key] {
				return fmt.Errorf("%w: duplicate key %q at line %d", envarserr.ErrInvalidDocument, key, n.Content[i].Line)
			}
			seen[key] = true

			if err := checkNoDuplicateKeys(n.Content[i+1]); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if err := checkNoDuplicateKeys(c); err != nil {
				return err
			}
		}
	}

	return nil
}

func mappingGet(n *yaml.Node, key string) (*yaml.Node, bool) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}

	for i := 0; i < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1], true
		}
	}

	return nil, false
}

func decodeDocument(root *yaml.Node) (*model.Document, error) {
	doc := model.NewDocument("", false)

	config, _ := mappingGet(root, "configuration")
	if config != nil {
		if app, ok := mappingGet(config, "app"); ok {
			doc.App = app.Value
		}
		if kmsKey, ok := mappingGet(config, "kms_key"); ok {
			doc.KMSKey = kmsKey.Value
		}
		if mandatory, ok := mappingGet(config, "description_mandatory"); ok {
			doc.DescriptionMandatory = mandatory.Value == "true"
		}

		if envs, ok := mappingGet(config, "environments"); ok && envs.Kind == yaml.SequenceNode {
			for _, e := range envs.Content {
				doc.Environments = append(doc.Environments, model.Environment{Name: e.Value})
			}
		}

		if locs, ok := mappingGet(config, "locations"); ok && locs.Kind == yaml.SequenceNode {
			for _, entry := range locs.Content {
				if entry.Kind != yaml.MappingNode || len(entry.Content) != 2 {
					return nil, fmt.Errorf("%w: malformed location entry at line %d", envarserr.ErrInvalidDocument, entry.Line)
				}

				name := entry.Content[0].Value
				val := entry.Content[1]

				loc := model.Location{Name: name}
				if val.Kind == yaml.MappingNode {
					if id, ok := mappingGet(val, "id"); ok {
						loc.ID = id.Value
					}
					if key, ok := mappingGet(val, "kms_key"); ok {
						loc.KMSKey = key.Value
					}
				} else {
					loc.ID = val.Value
				}

				doc.Locations = append(doc.Locations, loc)
			}
		}
	}

	vars, _ := mappingGet(root, "environment_variables")
	if vars == nil {
		return doc, nil
	}
	if vars.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: environment_variables must be a mapping", envarserr.ErrInvalidDocument)
	}

	for i := 0; i < len(vars.Content); i += 2 {
		varName := vars.Content[i].Value
		varBlock := vars.Content[i+1]

		if !model.VariableNamePattern.MatchString(varName) {
			return nil, fmt.Errorf("%w: %q must be uppercase", envarserr.ErrInvalidName, varName)
		}

		v := &model.Variable{Name: varName}
		doc.Variables[varName] = v

		if varBlock.Kind == yaml.ScalarNode && varBlock.Tag == "!!null" {
			continue // a variable with no metadata and no bindings is written as an empty block
		}
		if varBlock.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: variable %q block must be a mapping", envarserr.ErrInvalidDocument, varName)
		}

		if err := decodeVariableBlock(doc, v, varBlock); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func decodeVariableBlock(doc *model.Document, v *model.Variable, block *yaml.Node) error {
	for i := 0; i < len(block.Content); i += 2 {
		key := block.Content[i].Value
		val := block.Content[i+1]

		switch key {
		case keyDescription:
			v.Description = val.Value
			continue
		case keyValidation:
			v.Validation = val.Value
			continue
		case keyDefault:
			doc.Bindings = append(doc.Bindings, model.ValueBinding{
				Variable: v.Name, Scope: model.DefaultScope(), Value: nodeToValue(val),
			})
			continue
		}

		switch {
		case doc.HasEnvironment(key):
			if err := decodeEnvironmentKey(doc, v.Name, key, val); err != nil {
				return err
			}
		case doc.HasLocationName(key):
			if err := decodeLocationKey(doc, v.Name, key, val); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q under variable %q", envarserr.ErrUnknownScopeKey, key, v.Name)
		}
	}

	return nil
}

func decodeEnvironmentKey(doc *model.Document, varName, envName string, val *yaml.Node) error {
	if val.Kind == yaml.MappingNode {
		for i := 0; i < len(val.Content); i += 2 {
			locName := val.Content[i].Value
			locVal := val.Content[i+1]

			if !doc.HasLocationName(locName) {
				return fmt.Errorf("%w: unknown location %q", envarserr.ErrInvalidDocument, locName)
			}
			if locVal.Kind == yaml.MappingNode {
				return fmt.Errorf("%w: %q -> %q -> %q", envarserr.ErrInvalidNesting, varName, envName, locName)
			}

			doc.Bindings = append(doc.Bindings, model.ValueBinding{
				Variable: varName,
				Scope:    model.SpecificScope(envName, locName),
				Value:    nodeToValue(locVal),
			})
		}

		return nil
	}

	doc.Bindings = append(doc.Bindings, model.ValueBinding{
		Variable: varName, Scope: model.EnvironmentScope(envName), Value: nodeToValue(val),
	})

	return nil
}

func decodeLocationKey(doc *model.Document, varName, locName string, val *yaml.Node) error {
	if val.Kind == yaml.MappingNode {
		for i := 0; i < len(val.Content); i += 2 {
			envName := val.Content[i].Value
			envVal := val.Content[i+1]

			if !doc.HasEnvironment(envName) {
				return fmt.Errorf("%w: unknown environment %q", envarserr.ErrInvalidDocument, envName)
			}
			if envVal.Kind == yaml.MappingNode {
				return fmt.Errorf("%w: %q -> %q -> %q", envarserr.ErrInvalidNesting, varName, locName, envName)
			}

			doc.Bindings = append(doc.Bindings, model.ValueBinding{
				Variable: varName,
				Scope:    model.SpecificScope(envName, locName),
				Value:    nodeToValue(envVal),
			})
		}

		return nil
	}

	doc.Bindings = append(doc.Bindings, model.ValueBinding{
		Variable: varName, Scope: model.LocationScope(locName), Value: nodeToValue(val),
	})

	return nil
}

func nodeToValue(n *yaml.Node) model.Value {
	if n.Tag == secretTag {
		return model.Cipher(n.Value)
	}

	return model.Plain(n.Value)
}

// Write serializes doc to path in the deterministic, sorted form §4.1's
// writer contract demands.
func Write(doc *model.Document, path string) error {
	out, err := Encode(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, out, 0o600)
}

// Encode renders doc to the two-section textual form.
func Encode(doc *model.Document) ([]byte, error) {
	var b strings.Builder

	writeConfiguration(&b, doc)
	if len(doc.Variables) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if err := writeVariables(&b, doc); err != nil {
			return nil, err
		}
	}

	return []byte(b.String()), nil
}

func writeConfiguration(b *strings.Builder, doc *model.Document) {
	if doc.App == "" && doc.KMSKey == "" && !doc.DescriptionMandatory &&
		len(doc.Environments) == 0 && len(doc.Locations) == 0 {
		return
	}

	b.WriteString("configuration:\n")
	if doc.App != "" {
		fmt.Fprintf(b, "  app: %s\n", doc.App)
	}
	if doc.KMSKey != "" {
		fmt.Fprintf(b, "  kms_key: %s\n", doc.KMSKey)
	}
	fmt.Fprintf(b, "  description_mandatory: %t\n", doc.DescriptionMandatory)

	envNames := make([]string, len(doc.Environments))
	for i, e := range doc.Environments {
		envNames[i] = e.Name
	}
	sort.Strings(envNames)

	b.WriteString("  environments:\n")
	for _, name := range envNames {
		fmt.Fprintf(b, "    - %s\n", name)
	}

	locs := make([]model.Location, len(doc.Locations))
	copy(locs, doc.Locations)
	sort.Slice(locs, func(i, j int) bool { return locs[i].Name < locs[j].Name })

	b.WriteString("  locations:\n")
	for _, loc := range locs {
		if loc.KMSKey != "" {
			fmt.Fprintf(b, "    - %s:\n        id: %s\n        kms_key: %s\n", loc.Name, loc.ID, loc.KMSKey)
		} else {
			fmt.Fprintf(b, "    - %s: %s\n", loc.Name, loc.ID)
		}
	}
}

// writeVariables emits the environment_variables section, sorted by
// variable name, with DEFAULT/ENVIRONMENT/LOCATION/SPECIFIC bindings
// interleaved in the sorted order of their outer key.
func writeVariables(b *strings.Builder, doc *model.Document) error {
	b.WriteString("environment_variables:\n")

	names := doc.SortedVariableNames()
	for i, name := range names {
		v := doc.Variables[name]
		fmt.Fprintf(b, "  %s:\n", name)

		if v.Description != "" {
			fmt.Fprintf(b, "    description: %s\n", v.Description)
		}
		if v.Validation != "" {
			fmt.Fprintf(b, "    validation: %s\n", v.Validation)
		}

		block, err := variableBlock(doc, name)
		if err != nil {
			return err
		}

		if block.defaultVal != nil {
			if err := writeScalarLine(b, "    ", keyDefault, *block.defaultVal); err != nil {
				return err
			}
		}

		for _, key := range block.sortedOuterKeys() {
			entry := block.outer[key]
			if entry.scalar != nil {
				if err := writeScalarLine(b, "    ", key, *entry.scalar); err != nil {
					return err
				}
				continue
			}

			fmt.Fprintf(b, "    %s:\n", key)
			innerKeys := make([]string, 0, len(entry.nested))
			for k := range entry.nested {
				innerKeys = append(innerKeys, k)
			}
			sort.Strings(innerKeys)
			for _, ik := range innerKeys {
				if err := writeScalarLine(b, "      ", ik, entry.nested[ik]); err != nil {
					return err
				}
			}
		}

		if i < len(names)-1 {
			b.WriteString("\n")
		}
	}

	return nil
}

// writeScalarLine emits "key: value" through yaml.v3's own scalar
// encoder rather than a hand-formatted string, so a value that happens
// to look like YAML syntax -- a template reference such as "{{ B }}",
// which is a plain scalar starting with a flow-mapping indicator -- gets
// quoted instead of corrupting the document on reload. Secrets always
// use block-literal style, matching the ciphertext tag's original
// representer; any other multi-line value is forced to block-literal
// too, since a plain or quoted scalar can't carry an embedded newline
// without desyncing the surrounding indentation.
func writeScalarLine(b *strings.Builder, indent, key string, v model.Value) error {
	valNode := &yaml.Node{Kind: yaml.ScalarNode, Value: v.Raw}

	switch {
	case v.IsSecret:
		valNode.Tag = secretTag
		valNode.Style = yaml.LiteralStyle
	case strings.Contains(v.Raw, "\n"):
		valNode.Style = yaml.LiteralStyle
	}

	lineNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: key},
			valNode,
		},
	}

	rendered, err := yaml.Marshal(lineNode)
	if err != nil {
		return fmt.Errorf("%w: encoding %q: %v", envarserr.ErrInvalidDocument, key, err)
	}

	for _, line := range strings.Split(strings.TrimRight(string(rendered), "\n"), "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}

	return nil
}

type outerEntry struct {
	scalar *model.Value
	nested map[string]model.Value
}

type varBlockLayout struct {
	defaultVal *model.Value
	outer      map[string]*outerEntry
}

func (l *varBlockLayout) sortedOuterKeys() []string {
	keys := make([]string, 0, len(l.outer))
	for k := range l.outer {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func (l *varBlockLayout) entry(key string) *outerEntry {
	e, ok := l.outer[key]
	if !ok {
		e = &outerEntry{nested: map[string]model.Value{}}
		l.outer[key] = e
	}

	return e
}

// variableBlock groups every binding of a variable into the writer's
// two-axis layout. SPECIFIC bindings nest preferentially under their
// environment key; if that key already carries a plain ENVIRONMENT
// scalar, they fall back to nesting under the location key instead. A
// variable whose bindings need nesting under a key that is already used
// as a scalar on BOTH axes cannot be represented and is an
// InvalidDocument write-time failure.
func variableBlock(doc *model.Document, name string) (*varBlockLayout, error) {
	layout := &varBlockLayout{outer: map[string]*outerEntry{}}

	var specifics []model.ValueBinding

	for _, b := range doc.BindingsFor(name) {
		switch b.Scope.Kind() {
		case model.ScopeDefault:
			v := b.Value
			layout.defaultVal = &v
		case model.ScopeEnvironment:
			env, _ := b.Scope.Environment()
			v := b.Value
			layout.entry(env).scalar = &v
		case model.ScopeLocation:
			loc, _ := b.Scope.Location()
			v := b.Value
			layout.entry(loc).scalar = &v
		case model.ScopeSpecific:
			specifics = append(specifics, b)
		}
	}

	for _, b := range specifics {
		env, _ := b.Scope.Environment()
		loc, _ := b.Scope.Location()

		envEntry := layout.outer[env]
		if envEntry == nil || envEntry.scalar == nil {
			layout.entry(env).nested[loc] = b.Value
			continue
		}

		locEntry := layout.outer[loc]
		if locEntry == nil || locEntry.scalar == nil {
			layout.entry(loc).nested[env] = b.Value
			continue
		}

		return nil, fmt.Errorf(
			"%w: variable %q binding (env=%s, loc=%s) cannot be represented: both axes already hold scalars",
			envarserr.ErrInvalidDocument, name, env, loc)
	}

	return layout, nil
}
