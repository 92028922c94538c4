// Package cmdinit implements the `envars init` command: scaffold a new
// document with its environments, locations, and KMS key.
package cmdinit

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/model"
)

type options struct {
	app                  string
	envs                 string
	locs                 string
	kmsKey               string
	force                bool
	descriptionMandatory bool
}

// NewCommand builds the `init` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new envars document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.app, "app", "", "Application label")
	cmd.Flags().StringVar(&opts.envs, "env", "", "Comma-separated environment names")
	cmd.Flags().StringVar(&opts.locs, "loc", "", "Comma-separated name:id location pairs")
	cmd.Flags().StringVar(&opts.kmsKey, "kms-key", "", "Document-wide KMS key identifier")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing document")
	cmd.Flags().BoolVar(&opts.descriptionMandatory, "description-mandatory", false, "Require a description on every variable")

	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func run(app *cliapp.App, opts options) error {
	rt := app.Runtime()

	if !opts.force {
		if _, err := os.Stat(rt.FilePath); err == nil {
			return fmt.Errorf("%s already exists; pass --force to overwrite", rt.FilePath)
		}
	}

	doc := model.NewDocument(opts.app, opts.descriptionMandatory)
	doc.KMSKey = opts.kmsKey

	for _, name := range splitNonEmpty(opts.envs, ",") {
		if err := doc.AddEnvironment(model.Environment{Name: name}); err != nil {
			return err
		}
	}

	for _, pair := range splitNonEmpty(opts.locs, ",") {
		name, id, ok := strings.Cut(pair, ":")
		if !ok {
			return fmt.Errorf("invalid --loc entry %q, expected name:id", pair)
		}
		if err := doc.AddLocation(model.Location{Name: name, ID: id}); err != nil {
			return err
		}
	}

	if err := rt.SaveDocument(doc, rt.FilePath); err != nil {
		return err
	}

	app.Log.Infof("initialized %s for app %q", rt.FilePath, opts.app)

	return nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
