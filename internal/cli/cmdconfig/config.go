// Package cmdconfig implements the `envars config` command: edit
// document-level configuration (KMS key, environments, locations,
// description-mandatory).
package cmdconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/model"
)

type options struct {
	kmsKey                 string
	addEnv                 string
	removeEnv              string
	addLoc                 string
	removeLoc              string
	descriptionMandatory   bool
	noDescriptionMandatory bool
}

// NewCommand builds the `config` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Edit document-level configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.kmsKey, "kms-key", "", "Set the document-wide KMS key")
	cmd.Flags().StringVar(&opts.addEnv, "add-env", "", "Add an environment")
	cmd.Flags().StringVar(&opts.removeEnv, "remove-env", "", "Remove an environment")
	cmd.Flags().StringVar(&opts.addLoc, "add-loc", "", "Add a location as name:id")
	cmd.Flags().StringVar(&opts.removeLoc, "remove-loc", "", "Remove a location by name")
	cmd.Flags().BoolVar(&opts.descriptionMandatory, "description-mandatory", false, "Require a description on every variable")
	cmd.Flags().BoolVar(&opts.noDescriptionMandatory, "no-description-mandatory", false, "Stop requiring descriptions")

	return cmd
}

func run(app *cliapp.App, opts options) error {
	rt := app.Runtime()

	doc, err := rt.LoadDocument()
	if err != nil {
		return err
	}

	if opts.kmsKey != "" {
		doc.KMSKey = opts.kmsKey
	}

	if opts.addEnv != "" {
		if err := doc.AddEnvironment(model.Environment{Name: opts.addEnv}); err != nil {
			return err
		}
	}

	if opts.removeEnv != "" {
		if err := doc.RemoveEnvironment(opts.removeEnv); err != nil {
			return err
		}
	}

	if opts.addLoc != "" {
		name, id, ok := strings.Cut(opts.addLoc, ":")
		if !ok {
			return fmt.Errorf("invalid --add-loc entry %q, expected name:id", opts.addLoc)
		}
		if err := doc.AddLocation(model.Location{Name: name, ID: id}); err != nil {
			return err
		}
	}

	if opts.removeLoc != "" {
		if err := doc.RemoveLocation(opts.removeLoc); err != nil {
			return err
		}
	}

	if opts.descriptionMandatory && opts.noDescriptionMandatory {
		return fmt.Errorf("--description-mandatory and --no-description-mandatory are mutually exclusive")
	}
	if opts.descriptionMandatory {
		doc.DescriptionMandatory = true
	}
	if opts.noDescriptionMandatory {
		doc.DescriptionMandatory = false
	}

	if err := rt.SaveDocument(doc, rt.FilePath); err != nil {
		return err
	}

	app.Log.Infof("updated %s", rt.FilePath)

	return nil
}
