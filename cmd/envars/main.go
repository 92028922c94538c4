// Command envars manages application configuration and secrets as code.
package main

import (
	"fmt"
	"os"

	"github.com/timeoutdigital/envars/internal/cli"
	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	lggr, err := logger.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer lggr.Sync() //nolint:errcheck

	app := cliapp.NewApp(lggr)
	cli.Register(app)

	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}
