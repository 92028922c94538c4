package cmdsetenv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cli/cmdsetenv"
	"github.com/timeoutdigital/envars/internal/cliapp"
	"github.com/timeoutdigital/envars/internal/codec"
	"github.com/timeoutdigital/envars/internal/logger"
	"github.com/timeoutdigital/envars/internal/model"
)

func newApp(t *testing.T) *cliapp.App {
	t.Helper()

	path := filepath.Join(t.TempDir(), "envars.yml")

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, codec.Write(doc, path))

	app := &cliapp.App{FilePath: path}
	app.Base = cliapp.NewBase(logger.Nop(), nil)

	return app
}

func TestSetSystemdEnvMissingEnvironmentFails(t *testing.T) {
	require.NoError(t, os.Unsetenv("ENVARS_ENV"))

	app := newApp(t)
	cmd := cmdsetenv.NewCommand(app)
	cmd.SetArgs(nil)

	require.Error(t, cmd.Execute())
}
