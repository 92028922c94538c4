// Package cmdsetenv implements the `envars set-systemd-env` command:
// push resolved variables to the user's systemd session manager.
package cmdsetenv

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/cliflags"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/resolve"
)

// NewCommand builds the `set-systemd-env` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var env, loc string

	cmd := &cobra.Command{
		Use:   "set-systemd-env",
		Short: "Push resolved variables to the systemd user session manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, env, loc)
		},
	}

	cliflags.Environment(cmd, &env)
	cliflags.Location(cmd, &loc)

	return cmd
}

func run(cmd *cobra.Command, app *cliapp.App, env, loc string) error {
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

	args := make([]string, 0, len(result.Names)+1)
	args = append(args, "--user", "set-environment")
	for _, name := range result.Names {
		args = append(args, fmt.Sprintf("%s=%s", name, result.Values[name]))
	}

	out, err := exec.CommandContext(cmd.Context(), "systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl --user set-environment: %w: %s", err, out)
	}

	app.Log.Infof("pushed %d variables to the session manager", len(result.Names))

	return nil
}
