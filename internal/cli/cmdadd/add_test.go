package cmdadd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cli/cmdadd"
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

func TestAddPlainBinding(t *testing.T) {
	t.Parallel()

	app := newApp(t)
	cmd := cmdadd.NewCommand(app)
	cmd.SetArgs([]string{"HOSTNAME=example.com", "--env", "dev", "--description", "the host"})

	require.NoError(t, cmd.Execute())

	doc, err := codec.Load(app.FilePath)
	require.NoError(t, err)

	b, ok := doc.GetBinding("HOSTNAME", model.Context{Environment: "dev"})
	require.True(t, ok)
	assert.Equal(t, "example.com", b.Value.Raw)
	assert.False(t, b.Value.IsSecret)
}

func TestAddRejectsAmbiguousSensitivity(t *testing.T) {
	t.Parallel()

	app := newApp(t)
	cmd := cmdadd.NewCommand(app)
	cmd.SetArgs([]string{"DB_PASSWORD=hunter2", "--env", "dev"})

	require.Error(t, cmd.Execute())
}

func TestAddSecretRequiresScope(t *testing.T) {
	t.Parallel()

	app := newApp(t)
	cmd := cmdadd.NewCommand(app)
	cmd.SetArgs([]string{"DB_PASSWORD=hunter2", "--secret"})

	require.Error(t, cmd.Execute())
}

func TestAddNoSecretBypassesSensitivityCheck(t *testing.T) {
	t.Parallel()

	app := newApp(t)
	cmd := cmdadd.NewCommand(app)
	cmd.SetArgs([]string{"API_KEY=not-actually-secret", "--env", "dev", "--no-secret"})

	require.NoError(t, cmd.Execute())

	doc, err := codec.Load(app.FilePath)
	require.NoError(t, err)

	b, ok := doc.GetBinding("API_KEY", model.Context{Environment: "dev"})
	require.True(t, ok)
	assert.False(t, b.Value.IsSecret)
}

func TestAddValueFromFilePreservesNewlines(t *testing.T) {
	t.Parallel()

	app := newApp(t)

	content := "-----BEGIN CERTIFICATE-----\nline one\nline two\n-----END CERTIFICATE-----\n"
	certPath := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(certPath, []byte(content), 0o600))

	cmd := cmdadd.NewCommand(app)
	cmd.SetArgs([]string{"--var-name", "CERT", "--value-from-file", certPath, "--env", "dev"})

	require.NoError(t, cmd.Execute())

	doc, err := codec.Load(app.FilePath)
	require.NoError(t, err)

	b, ok := doc.GetBinding("CERT", model.Context{Environment: "dev"})
	require.True(t, ok)
	assert.Equal(t, content, b.Value.Raw)
}
