// Package cmdtree implements the `envars tree` command: render the
// full document, every scope for every variable, as a tree.
package cmdtree

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/model"
)

// NewCommand builds the `tree` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var decrypt bool
	var truncate int

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the full document as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, decrypt, truncate)
		},
	}

	cmd.Flags().BoolVar(&decrypt, "decrypt", false, "Decrypt secret values before printing")
	cmd.Flags().IntVar(&truncate, "truncate", 0, "Truncate each printed value to N characters (0 = no truncation)")

	return cmd
}

func run(cmd *cobra.Command, app *cliapp.App, decrypt bool, truncate int) error {
	rt := app.Runtime()

	doc, err := rt.LoadDocument()
	if err != nil {
		return err
	}

	var (
		awsKMS, gcpKMS kms.Provider
	)

	if decrypt {
		engine, err := rt.BuildEngine(cmd.Context(), doc)
		if err != nil {
			return err
		}
		awsKMS, gcpKMS = engine.AWSKMS, engine.GCPKMS
	}

	root := treeprint.NewWithRoot(doc.App)

	for _, name := range doc.SortedVariableNames() {
		v := doc.Variables[name]

		branch := root.AddBranch(name)
		if v.Description != "" {
			branch.AddNode(fmt.Sprintf("description: %s", v.Description))
		}
		if v.Validation != "" {
			branch.AddNode(fmt.Sprintf("validation: %s", v.Validation))
		}

		for _, b := range doc.BindingsFor(name) {
			label := scopeLabel(b.Scope)
			value := displayValue(cmd, doc, b, decrypt, awsKMS, gcpKMS, truncate)
			branch.AddNode(fmt.Sprintf("%s = %s", label, value))
		}
	}

	_, err = fmt.Fprintln(os.Stdout, root.String())

	return err
}

func scopeLabel(s model.Scope) string {
	env, hasEnv := s.Environment()
	loc, hasLoc := s.Location()

	switch {
	case hasEnv && hasLoc:
		return fmt.Sprintf("SPECIFIC(%s,%s)", env, loc)
	case hasEnv:
		return fmt.Sprintf("ENVIRONMENT(%s)", env)
	case hasLoc:
		return fmt.Sprintf("LOCATION(%s)", loc)
	default:
		return "DEFAULT"
	}
}

func displayValue(
	cmd *cobra.Command,
	doc *model.Document,
	b model.ValueBinding,
	decrypt bool,
	awsKMS, gcpKMS kms.Provider,
	truncate int,
) string {
	value := b.Value.Raw

	if b.Value.IsSecret {
		if !decrypt {
			value = "<secret>"
		} else {
			key := doc.KMSKey
			if loc, ok := b.Scope.Location(); ok {
				key = doc.KMSKeyFor(loc)
			}

			provider, ok := kms.ForProvider(model.ProviderFromKMSKey(key), awsKMS, gcpKMS)
			if !ok {
				value = "<unresolvable secret>"
			} else {
				plain, err := provider.Decrypt(cmd.Context(), key, b.Value.Raw, kms.BuildContext(doc.App, b.Scope))
				if err != nil {
					value = fmt.Sprintf("<decrypt error: %v>", err)
				} else {
					value = plain
				}
			}
		}
	}

	if truncate > 0 && len(value) > truncate {
		value = value[:truncate] + "..."
	}

	return value
}
