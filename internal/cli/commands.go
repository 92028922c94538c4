// Package cli assembles the envars subcommand set on top of the
// cliapp application shell, grounded on the teacher's
// pkg/commands.Commands factory pattern.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cli/cmdadd"
	"github.com/timeoutdigital/envars/internal/cli/cmdconfig"
	"github.com/timeoutdigital/envars/internal/cli/cmdexec"
	"github.com/timeoutdigital/envars/internal/cli/cmdinit"
	"github.com/timeoutdigital/envars/internal/cli/cmdoutput"
	"github.com/timeoutdigital/envars/internal/cli/cmdrotate"
	"github.com/timeoutdigital/envars/internal/cli/cmdsetenv"
	"github.com/timeoutdigital/envars/internal/cli/cmdtree"
	"github.com/timeoutdigital/envars/internal/cli/cmdvalidate"
	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/logger"
)

// Commands builds every envars subcommand.
type Commands struct {
	Log logger.Logger
}

// Build returns one *cobra.Command per verb, ready to attach to an
// *cliapp.App's root command.
func (c Commands) Build(app *cliapp.App) []*cobra.Command {
	return []*cobra.Command{
		cmdinit.NewCommand(app),
		cmdadd.NewCommand(app),
		cmdoutput.NewCommand(app),
		cmdtree.NewCommand(app),
		cmdexec.NewCommand(app),
		cmdsetenv.NewCommand(app),
		cmdconfig.NewCommand(app),
		cmdrotate.NewCommand(app),
		cmdvalidate.NewCommand(app),
	}
}

// Register builds and attaches every subcommand to app in one step.
func Register(app *cliapp.App) {
	cmds := Commands{Log: app.Log}
	app.AddCommand(cmds.Build(app)...)
}
