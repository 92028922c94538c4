package cliapp

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliflags"
	"github.com/timeoutdigital/envars/internal/logger"
)

// App is the envars root application: a Base plus the persistent flags
// every subcommand inherits and the Runtime subcommands resolve their
// document and engine through.
type App struct {
	*Base

	FilePath string
	Verbose  bool

	// RuntimeOverride, if set, is returned by Runtime() instead of a
	// freshly-built production Runtime; its nil fields are filled with
	// production defaults first. Tests set this to a Runtime wired with
	// fakes to exercise a command without touching the network.
	RuntimeOverride *Runtime
}

// NewApp builds the root command and wires the persistent --file and
// --verbose flags. Callers (internal/cli.Commands) register
// subcommands against the returned App's RootCmd before calling Run.
func NewApp(log logger.Logger) *App {
	root := &cobra.Command{
		Use:           "envars",
		Short:         "Manage application configuration and secrets as code",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app := &App{Base: NewBase(log, root)}

	cliflags.File(root, &app.FilePath)
	cliflags.Verbose(root, &app.Verbose)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !app.Verbose && os.Getenv("ENVARS_DEBUG") == "" {
			return nil
		}

		verbose, err := (&logger.Config{Verbose: true}).New()
		if err != nil {
			return err
		}
		app.Log = verbose

		return nil
	}

	return app
}

// Runtime builds a Runtime bound to the app's current --file value.
// Subcommands call this inside RunE, after flags have been parsed.
func (a *App) Runtime() *Runtime {
	if a.RuntimeOverride != nil {
		a.RuntimeOverride.applyDefaults()
		return a.RuntimeOverride
	}

	return NewRuntime(a.Log, a.FilePath)
}
