// Package cliapp provides the application shell: a Base wrapping the
// root cobra.Command plus the shared logger and injectable Runtime,
// grounded on the teacher's engine/cld/legacy/cli.Base pattern. The
// subcommand factory lives one level up, in internal/cli, so that each
// internal/cli/cmd* package can depend on cliapp without creating an
// import cycle back through the factory.
package cliapp

import (
	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/logger"
)

// Base wires a logger to a root cobra command.
type Base struct {
	Log     logger.Logger
	rootCmd *cobra.Command
}

func NewBase(log logger.Logger, rootCmd *cobra.Command) *Base {
	return &Base{Log: log, rootCmd: rootCmd}
}

func (b *Base) AddCommand(cmds ...*cobra.Command) {
	b.rootCmd.AddCommand(cmds...)
}

func (b *Base) RootCmd() *cobra.Command {
	return b.rootCmd
}

// Run executes the root command with the process's own argument list.
func (b *Base) Run() error {
	return b.rootCmd.Execute()
}
