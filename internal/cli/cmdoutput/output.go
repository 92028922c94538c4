// Package cmdoutput implements the `envars output` command: resolve
// with decryption and serialize the result.
package cmdoutput

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/cliflags"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/output"
	"github.com/timeoutdigital/envars/internal/resolve"
)

// NewCommand builds the `output` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var env, loc, format string

	cmd := &cobra.Command{
		Use:   "output",
		Short: "Resolve variables for an environment/location and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, env, loc, format)
		},
	}

	cliflags.Environment(cmd, &env)
	cliflags.Location(cmd, &loc)
	cmd.Flags().StringVar(&format, "format", output.FormatDotenv, "Output format: dotenv|yaml|json")

	return cmd
}

func run(cmd *cobra.Command, app *cliapp.App, env, loc, format string) error {
	rt := app.Runtime()

	doc, err := rt.LoadDocument()
	if err != nil {
		return err
	}

	resolvedEnv, err := resolve.EnvironmentOrFallback(env)
	if err != nil {
		return err
	}

	engine, err := rt.BuildEngine(cmd.Context(), doc)
	if err != nil {
		return err
	}

	result, err := engine.Resolve(cmd.Context(), doc, model.Context{Environment: resolvedEnv, Location: loc}, true)
	if err != nil {
		return err
	}

	rendered, err := output.Render(result, format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(os.Stdout, string(rendered))

	return err
}
