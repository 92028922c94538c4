package cmdoutput_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cli/cmdoutput"
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
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "HOSTNAME", Scope: model.EnvironmentScope("dev"), Value: model.Plain("example.com"),
	}))
	require.NoError(t, codec.Write(doc, path))

	app := &cliapp.App{FilePath: path}
	app.Base = cliapp.NewBase(logger.Nop(), nil)

	return app
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(out)
}

func TestOutputRendersDotenvByDefault(t *testing.T) {
	app := newApp(t)
	cmd := cmdoutput.NewCommand(app)
	cmd.SetArgs([]string{"--env", "dev"})

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})

	assert.Contains(t, out, `HOSTNAME="example.com"`)
}

func TestOutputRendersJSON(t *testing.T) {
	app := newApp(t)
	cmd := cmdoutput.NewCommand(app)
	cmd.SetArgs([]string{"--env", "dev", "--format", "json"})

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})

	assert.Contains(t, out, `"HOSTNAME"`)
	assert.Contains(t, out, `"envars"`)
}

func TestOutputMissingEnvironmentFails(t *testing.T) {
	app := newApp(t)
	cmd := cmdoutput.NewCommand(app)
	cmd.SetArgs(nil)

	require.Error(t, cmd.Execute())
}
