// Package template implements the minimal Jinja-like substitution
// language used by variable values: bare {{ NAME }} references to other
// variables, and {{ env.get('X', 'default') }} reads of the process
// environment. It is a small hand-rolled scanner/parser rather than
// text/template because the latter has no bare-identifier substitution
// form against a dynamically discovered, graph-ordered variable set.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	envGetPattern     = regexp.MustCompile(`^env\.get\(\s*['"]([^'"]*)['"]\s*(?:,\s*['"]([^'"]*)['"]\s*)?\)$`)
)

// NodeKind distinguishes the three node shapes a parsed template can
// contain.
type NodeKind int

const (
	NodeText NodeKind = iota
	NodeVariable
	NodeEnvGet
)

// Node is one literal-text or substitution span.
type Node struct {
	Kind    NodeKind
	Text    string // NodeText
	Name    string // NodeVariable: variable name. NodeEnvGet: env var name.
	Default string // NodeEnvGet only
}

// Template is a parsed value string, ready to be rendered once its
// variable dependencies are known.
type Template struct {
	Raw   string
	Nodes []Node
}

// Parse scans raw for {{ ... }} spans and classifies each as a bare
// variable reference or an env.get(...) call. An expression that matches
// neither shape is a TemplateError.
func Parse(raw string) (*Template, error) {
	t := &Template{Raw: raw}

	last := 0
	for _, loc := range exprPattern.FindAllStringSubmatchIndex(raw, -1) {
		start, end := loc[0], loc[1]
		exprStart, exprEnd := loc[2], loc[3]

		if start > last {
			t.Nodes = append(t.Nodes, Node{Kind: NodeText, Text: raw[last:start]})
		}

		expr := raw[exprStart:exprEnd]
		node, err := parseExpr(expr)
		if err != nil {
			return nil, err
		}
		t.Nodes = append(t.Nodes, node)

		last = end
	}

	if last < len(raw) {
		t.Nodes = append(t.Nodes, Node{Kind: NodeText, Text: raw[last:]})
	}

	return t, nil
}

func parseExpr(expr string) (Node, error) {
	if m := envGetPattern.FindStringSubmatch(expr); m != nil {
		return Node{Kind: NodeEnvGet, Name: m[1], Default: m[2]}, nil
	}

	if identifierPattern.MatchString(expr) {
		return Node{Kind: NodeVariable, Name: expr}, nil
	}

	return Node{}, fmt.Errorf("template: unrecognized expression %q", expr)
}

// ReferencedVariables returns the distinct variable names this template
// references, in first-seen order.
func (t *Template) ReferencedVariables() []string {
	seen := map[string]bool{}
	var names []string
	for _, n := range t.Nodes {
		if n.Kind == NodeVariable && !seen[n.Name] {
			seen[n.Name] = true
			names = append(names, n.Name)
		}
	}

	return names
}

// EnvLookup resolves an env.get(name, default) reference against a
// snapshot of the process environment.
type EnvLookup func(name, def string) string

// Render substitutes every node: variable references are looked up via
// resolved (which must already hold the rendered value of every name in
// ReferencedVariables, per the caller's topological order), and env.get
// calls via envLookup.
func (t *Template) Render(resolved map[string]string, envLookup EnvLookup) (string, error) {
	var b strings.Builder
	for _, n := range t.Nodes {
		switch n.Kind {
		case NodeText:
			b.WriteString(n.Text)
		case NodeVariable:
			v, ok := resolved[n.Name]
			if !ok {
				return "", fmt.Errorf("template: reference to undefined name %q", n.Name)
			}
			b.WriteString(v)
		case NodeEnvGet:
			b.WriteString(envLookup(n.Name, n.Default))
		}
	}

	return b.String(), nil
}
