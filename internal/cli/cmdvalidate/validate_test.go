package cmdvalidate_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cli/cmdvalidate"
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

func TestValidateCleanDocumentSucceeds(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "FOO", Scope: model.EnvironmentScope("dev"), Value: model.Plain("bar"),
	}))

	app := newApp(t, doc)
	cmd := cmdvalidate.NewCommand(app)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
}

func TestValidateReportsViolations(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", true)
	doc.Variables["FOO"] = &model.Variable{Name: "FOO"}

	app := newApp(t, doc)
	cmd := cmdvalidate.NewCommand(app)
	cmd.SetArgs(nil)

	require.Error(t, cmd.Execute())
}
