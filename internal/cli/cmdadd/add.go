// Package cmdadd implements the `envars add` command: insert or update
// one variable binding.
package cmdadd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/envarserr"
	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/validate"
)

// sensitivityKeywords is the fixed set of substrings that force an
// explicit --secret/--no-secret choice.
var sensitivityKeywords = []string{"PASSWORD", "TOKEN", "SECRET", "KEY"}

type options struct {
	env            string
	loc            string
	secret         bool
	noSecret       bool
	description    string
	validation     string
	varName        string
	valueFromFile  string
}

// NewCommand builds the `add` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "add [VAR=value]",
		Short: "Add or update one variable binding",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, value, err := resolveNameAndValue(opts, args)
			if err != nil {
				return err
			}

			return run(app, cmd, opts, name, value)
		},
	}

	cmd.Flags().StringVarP(&opts.env, "env", "e", "", "Environment to bind at")
	cmd.Flags().StringVarP(&opts.loc, "loc", "l", "", "Location to bind at")
	cmd.Flags().BoolVar(&opts.secret, "secret", false, "Store the value as an encrypted secret")
	cmd.Flags().BoolVar(&opts.noSecret, "no-secret", false, "Store the value as plaintext")
	cmd.Flags().StringVar(&opts.description, "description", "", "Variable description")
	cmd.Flags().StringVar(&opts.validation, "validation", "", "Validation regular expression")
	cmd.Flags().StringVar(&opts.varName, "var-name", "", "Variable name (with --value-from-file)")
	cmd.Flags().StringVar(&opts.valueFromFile, "value-from-file", "", "Read the value from this file")

	return cmd
}

func resolveNameAndValue(opts options, args []string) (string, string, error) {
	if opts.valueFromFile != "" {
		if opts.varName == "" {
			return "", "", fmt.Errorf("--value-from-file requires --var-name")
		}

		raw, err := os.ReadFile(opts.valueFromFile)
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", opts.valueFromFile, err)
		}

		return opts.varName, string(raw), nil
	}

	if len(args) != 1 {
		return "", "", fmt.Errorf("expected VAR=value, or --var-name with --value-from-file")
	}

	name, value, ok := strings.Cut(args[0], "=")
	if !ok {
		return "", "", fmt.Errorf("%w: expected VAR=value", envarserr.ErrInvalidName)
	}

	return name, value, nil
}

func run(app *cliapp.App, cmd *cobra.Command, opts options, name, rawValue string) error {
	rt := app.Runtime()

	doc, err := rt.LoadDocument()
	if err != nil {
		return err
	}

	secret, err := resolveSecretFlag(cmd, opts, name)
	if err != nil {
		return err
	}

	if secret && opts.env == "" && opts.loc == "" {
		return fmt.Errorf("%w: a secret value requires --env and/or --loc", envarserr.ErrConfigError)
	}

	scope, err := scopeFor(opts.env, opts.loc)
	if err != nil {
		return err
	}

	value := model.Plain(rawValue)
	if secret {
		key := doc.KMSKeyFor(opts.loc)
		engine, err := rt.BuildEngine(cmd.Context(), doc)
		if err != nil {
			return err
		}
		provider, ok := kms.ForProvider(model.ProviderFromKMSKey(key), engine.AWSKMS, engine.GCPKMS)
		if !ok {
			return fmt.Errorf("%w: no KMS provider available for key %q", envarserr.ErrConfigError, key)
		}
		cipher, err := provider.Encrypt(cmd.Context(), key, rawValue, kms.BuildContext(doc.App, scope))
		if err != nil {
			return envarserr.ForVariable(name, err)
		}
		value = model.Cipher(cipher)
	}

	if err := doc.SetBinding(model.SetBindingOptions{
		Variable:    name,
		Scope:       scope,
		Value:       value,
		Description: opts.description,
		Validation:  opts.validation,
	}); err != nil {
		return err
	}

	if err := validate.CheckCycles(doc); err != nil {
		return err
	}

	if err := rt.SaveDocument(doc, rt.FilePath); err != nil {
		return err
	}

	app.Log.Infof("set %s at %s", name, scope.Kind())

	return nil
}

// resolveSecretFlag applies the AmbiguousSensitivity rule of §4.6: a
// name containing a sensitivity keyword must be given an explicit
// --secret or --no-secret.
func resolveSecretFlag(cmd *cobra.Command, opts options, name string) (bool, error) {
	secretSet := cmd.Flags().Changed("secret")
	noSecretSet := cmd.Flags().Changed("no-secret")

	if secretSet && noSecretSet {
		return false, fmt.Errorf("--secret and --no-secret are mutually exclusive")
	}

	if secretSet {
		return true, nil
	}
	if noSecretSet {
		return false, nil
	}

	if looksSensitive(name) {
		return false, fmt.Errorf("%w: %q looks sensitive, pass --secret or --no-secret explicitly",
			envarserr.ErrAmbiguousSensitivity, name)
	}

	return false, nil
}

func looksSensitive(name string) bool {
	for _, kw := range sensitivityKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}

	return false
}

func scopeFor(env, loc string) (model.Scope, error) {
	switch {
	case env != "" && loc != "":
		return model.SpecificScope(env, loc), nil
	case env != "":
		return model.EnvironmentScope(env), nil
	case loc != "":
		return model.LocationScope(loc), nil
	default:
		return model.DefaultScope(), nil
	}
}
