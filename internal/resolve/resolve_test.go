package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/indirection"
	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/resolve"
)

func newEngine() *resolve.Engine {
	return &resolve.Engine{
		AWSKMS:       kms.NewFake(),
		GCPKMS:       kms.NewFake(),
		Indirections: indirection.NewRegistry(),
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "prod"}))
	require.NoError(t, doc.AddLocation(model.Location{Name: "aws", ID: "111"}))
	require.NoError(t, doc.AddLocation(model.Location{Name: "gcp", ID: "proj"}))

	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "API_KEY", Scope: model.DefaultScope(), Value: model.Plain("d")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "API_KEY", Scope: model.EnvironmentScope("dev"), Value: model.Plain("de")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "API_KEY", Scope: model.LocationScope("aws"), Value: model.Plain("al")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "API_KEY", Scope: model.SpecificScope("dev", "aws"), Value: model.Plain("sp")}))

	e := newEngine()

	cases := []struct{ env, loc, want string }{
		{"dev", "aws", "sp"},
		{"dev", "gcp", "de"},
		{"prod", "aws", "al"},
		{"prod", "gcp", "d"},
	}
	for _, tc := range cases {
		res, err := e.Resolve(context.Background(), doc, model.Context{Environment: tc.env, Location: tc.loc}, true)
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Values["API_KEY"])
	}
}

func TestResolveTemplateChain(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "DOMAIN", Scope: model.DefaultScope(), Value: model.Plain("example.com")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "HOSTNAME", Scope: model.DefaultScope(), Value: model.Plain("my-app.{{ DOMAIN }}")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "URL", Scope: model.DefaultScope(), Value: model.Plain("https://{{ HOSTNAME }}/")}))

	e := newEngine()
	res, err := e.Resolve(context.Background(), doc, model.Context{}, true)
	require.NoError(t, err)
	assert.Equal(t, "https://my-app.example.com/", res.Values["URL"])
}

func TestResolveCycleRejection(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "A", Scope: model.DefaultScope(), Value: model.Plain("{{ B }}")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "B", Scope: model.DefaultScope(), Value: model.Plain("{{ C }}")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "C", Scope: model.DefaultScope(), Value: model.Plain("{{ A }}")}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "D", Scope: model.DefaultScope(), Value: model.Plain("ok")}))

	e := newEngine()
	_, err := e.Resolve(context.Background(), doc, model.Context{}, true)
	require.Error(t, err)
}

func TestResolveNoNetworkForPlainDocument(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{Variable: "FOO", Scope: model.DefaultScope(), Value: model.Plain("bar")}))

	e := &resolve.Engine{Indirections: indirection.NewRegistry()}
	res, err := e.Resolve(context.Background(), doc, model.Context{}, true)
	require.NoError(t, err)
	assert.Equal(t, "bar", res.Values["FOO"])
}

func TestResolveSecretContextBinding(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	doc.KMSKey = "arn:aws:kms:us-east-1:111:key/abc"
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, doc.AddLocation(model.Location{Name: "aws", ID: "111"}))
	require.NoError(t, doc.AddLocation(model.Location{Name: "gcp", ID: "proj"}))

	fake := kms.NewFake()
	cipher, err := fake.Encrypt(context.Background(), doc.KMSKey, "p",
		kms.BuildContext(doc.App, model.SpecificScope("dev", "aws")))
	require.NoError(t, err)

	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "SECRET_VALUE", Scope: model.SpecificScope("dev", "aws"), Value: model.Cipher(cipher),
	}))

	e := &resolve.Engine{AWSKMS: fake, Indirections: indirection.NewRegistry()}

	res, err := e.Resolve(context.Background(), doc, model.Context{Environment: "dev", Location: "aws"}, true)
	require.NoError(t, err)
	assert.Equal(t, "p", res.Values["SECRET_VALUE"])

	doc.Bindings[0].Scope = model.SpecificScope("dev", "gcp")
	_, err = e.Resolve(context.Background(), doc, model.Context{Environment: "dev", Location: "gcp"}, true)
	require.Error(t, err)
}

func TestEnvironmentOrFallback(t *testing.T) {
	env, err := resolve.EnvironmentOrFallback("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", env)

	t.Setenv("ENVARS_ENV", "staging")
	env, err = resolve.EnvironmentOrFallback("")
	require.NoError(t, err)
	assert.Equal(t, "staging", env)
}
