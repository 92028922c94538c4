package cmdconfig_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cli/cmdconfig"
	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/codec"
	"github.com/timeoutdigital/envars/internal/logger"
	"github.com/timeoutdigital/envars/internal/model"
)

func newApp(t *testing.T, doc *model.Document) *cliapp.App {
	t.Helper()

	path := filepath.Join(t.TempDir(), "envars.yml")
	require.NoError(t, codec.Write(doc, path))

	app := &cliapp.App{FilePath: path}
	app.Base = cliapp.NewBase(logger.Nop(), nil)

	return app
}

func TestConfigAddEnvironment(t *testing.T) {
	t.Parallel()

	app := newApp(t, model.NewDocument("myapp", false))
	cmd := cmdconfig.NewCommand(app)
	cmd.SetArgs([]string{"--add-env", "staging"})

	require.NoError(t, cmd.Execute())

	doc, err := codec.Load(app.FilePath)
	require.NoError(t, err)
	assert.True(t, doc.HasEnvironment("staging"))
}

func TestConfigRemoveEnvironmentFailsWhenReferenced(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "FOO", Scope: model.EnvironmentScope("dev"), Value: model.Plain("bar"), Description: "d",
	}))

	app := newApp(t, doc)
	cmd := cmdconfig.NewCommand(app)
	cmd.SetArgs([]string{"--remove-env", "dev"})

	require.Error(t, cmd.Execute())
}

func TestConfigMutuallyExclusiveDescriptionFlags(t *testing.T) {
	t.Parallel()

	app := newApp(t, model.NewDocument("myapp", false))
	cmd := cmdconfig.NewCommand(app)
	cmd.SetArgs([]string{"--description-mandatory", "--no-description-mandatory"})

	require.Error(t, cmd.Execute())
}
