package cmdrotate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cli/cmdrotate"
	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/codec"
	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/logger"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/resolve"
)

func newApp(t *testing.T) (*cliapp.App, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "envars.yml")

	doc := model.NewDocument("myapp", false)
	doc.KMSKey = "arn:aws:kms:us-east-1:111111111111:key/old"
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, doc.AddLocation(model.Location{Name: "aws", ID: "111111111111"}))

	fake := kms.NewFake()
	cipher, err := fake.Encrypt(context.Background(), doc.KMSKey, "s3cr3t",
		kms.BuildContext(doc.App, model.SpecificScope("dev", "aws")))
	require.NoError(t, err)

	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "DB_PASSWORD", Scope: model.SpecificScope("dev", "aws"), Value: model.Cipher(cipher),
	}))

	require.NoError(t, codec.Write(doc, path))

	app := &cliapp.App{FilePath: path}
	app.Base = cliapp.NewBase(logger.Nop(), nil)
	app.RuntimeOverride = &cliapp.Runtime{
		Log:      logger.Nop(),
		FilePath: path,
		EngineBuilder: func(ctx context.Context, d *model.Document) (*resolve.Engine, error) {
			return &resolve.Engine{AWSKMS: fake}, nil
		},
	}

	return app, path
}

func TestRotateReencryptsUnderNewKey(t *testing.T) {
	t.Parallel()

	app, path := newApp(t)
	outputFile := path + ".rotated"

	cmd := cmdrotate.NewCommand(app)
	cmd.SetArgs([]string{"--new-kms-key", "arn:aws:kms:us-east-1:111111111111:key/new", "--output-file", outputFile})

	require.NoError(t, cmd.Execute())

	rotated, err := codec.Load(outputFile)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:kms:us-east-1:111111111111:key/new", rotated.KMSKey)

	b, ok := rotated.GetBinding("DB_PASSWORD", model.Context{Environment: "dev", Location: "aws"})
	require.True(t, ok)
	assert.NotEqual(t, b.Value.Raw, "s3cr3t")
}
