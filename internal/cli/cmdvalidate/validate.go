// Package cmdvalidate implements the `envars validate` command.
package cmdvalidate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/validate"
)

// NewCommand builds the `validate` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var ignoreDefaultSecrets bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every static and cross-context invariant of the document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(app, ignoreDefaultSecrets)
		},
	}

	cmd.Flags().BoolVar(&ignoreDefaultSecrets, "ignore-default-secrets", false, "Skip the no-DEFAULT-secret check")

	return cmd
}

func run(app *cliapp.App, ignoreDefaultSecrets bool) error {
	rt := app.Runtime()

	doc, err := rt.LoadDocument()
	if err != nil {
		return err
	}

	if err := validate.Validate(doc, validate.Options{IgnoreDefaultSecrets: ignoreDefaultSecrets}); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "document is valid")

	return nil
}
