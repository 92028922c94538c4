// Package cmdexec implements the `envars exec` command: resolve
// variables and replace the current process image with a child that
// inherits them.
package cmdexec

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/cliflags"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/resolve"
)

// NewCommand builds the `exec` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var env, loc string

	cmd := &cobra.Command{
		Use:   "exec -- CMD [ARGS...]",
		Short: "Exec a command with resolved variables injected",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, env, loc, args)
		},
	}

	cliflags.Environment(cmd, &env)
	cliflags.Location(cmd, &loc)

	return cmd
}

func run(cmd *cobra.Command, app *cliapp.App, env, loc string, args []string) error {
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

	path, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("locating %q: %w", args[0], err)
	}

	envp := os.Environ()
	for _, name := range result.Names {
		envp = append(envp, fmt.Sprintf("%s=%s", name, result.Values[name]))
	}

	return syscall.Exec(path, args, envp)
}
