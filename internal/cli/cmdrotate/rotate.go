// Package cmdrotate implements the `envars rotate-kms-key` command:
// re-encrypt every secret binding under a new key, writing a separate
// document and leaving the original untouched.
package cmdrotate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/model"
)

// NewCommand builds the `rotate-kms-key` subcommand.
func NewCommand(app *cliapp.App) *cobra.Command {
	var newKey, outputFile string

	cmd := &cobra.Command{
		Use:   "rotate-kms-key",
		Short: "Re-encrypt every secret under a new KMS key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, newKey, outputFile)
		},
	}

	cmd.Flags().StringVar(&newKey, "new-kms-key", "", "Replacement KMS key identifier")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Path to write the rotated document (defaults to <file>.rotated)")
	_ = cmd.MarkFlagRequired("new-kms-key")

	return cmd
}

func run(cmd *cobra.Command, app *cliapp.App, newKey, outputFile string) error {
	rt := app.Runtime()
	ctx := cmd.Context()

	doc, err := rt.LoadDocument()
	if err != nil {
		return err
	}

	oldEngine, err := rt.BuildEngine(ctx, doc)
	if err != nil {
		return err
	}

	newDocForEngine := &model.Document{KMSKey: newKey}
	newEngine, err := rt.BuildEngine(ctx, newDocForEngine)
	if err != nil {
		return err
	}

	rotated := cloneDocument(doc)
	rotated.KMSKey = newKey
	for i := range rotated.Locations {
		rotated.Locations[i].KMSKey = ""
	}

	// Abort with no output on the first decryption failure: a partially
	// rotated document is worse than the command failing outright.
	for i, b := range rotated.Bindings {
		if !b.Value.IsSecret {
			continue
		}

		oldKey := doc.KMSKey
		if loc, ok := b.Scope.Location(); ok {
			oldKey = doc.KMSKeyFor(loc)
		}

		ec := kms.BuildContext(doc.App, b.Scope)

		oldProvider, ok := kms.ForProvider(model.ProviderFromKMSKey(oldKey), oldEngine.AWSKMS, oldEngine.GCPKMS)
		if !ok {
			return fmt.Errorf("no KMS provider available for existing key %q", oldKey)
		}

		plain, err := oldProvider.Decrypt(ctx, oldKey, b.Value.Raw, ec)
		if err != nil {
			return fmt.Errorf("decrypting %q under the existing key: %w", b.Variable, err)
		}

		newProvider, ok := kms.ForProvider(model.ProviderFromKMSKey(newKey), newEngine.AWSKMS, newEngine.GCPKMS)
		if !ok {
			return fmt.Errorf("no KMS provider available for the new key %q", newKey)
		}

		cipher, err := newProvider.Encrypt(ctx, newKey, plain, ec)
		if err != nil {
			return fmt.Errorf("re-encrypting %q under the new key: %w", b.Variable, err)
		}

		rotated.Bindings[i].Value = model.Cipher(cipher)
	}

	if outputFile == "" {
		outputFile = rt.FilePath + ".rotated"
	}

	if err := rt.SaveDocument(rotated, outputFile); err != nil {
		return err
	}

	app.Log.Infof("wrote rotated document to %s", outputFile)

	return nil
}

func cloneDocument(doc *model.Document) *model.Document {
	clone := *doc

	clone.Environments = append([]model.Environment(nil), doc.Environments...)
	clone.Locations = append([]model.Location(nil), doc.Locations...)
	clone.Bindings = append([]model.ValueBinding(nil), doc.Bindings...)

	clone.Variables = make(map[string]*model.Variable, len(doc.Variables))
	for name, v := range doc.Variables {
		copied := *v
		clone.Variables[name] = &copied
	}

	return &clone
}
