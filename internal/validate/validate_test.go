package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/model"
	"github.com/timeoutdigital/envars/internal/validate"
)

func TestValidateCleanDocument(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "FOO", Scope: model.DefaultScope(), Value: model.Plain("bar"),
	}))

	require.NoError(t, validate.Validate(doc, validate.Options{}))
}

func TestValidateReportsMultipleViolations(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", true)
	doc.Variables["FOO"] = &model.Variable{Name: "FOO"} // no description, bypasses SetBinding on purpose
	doc.Bindings = append(doc.Bindings, model.ValueBinding{
		Variable: "FOO", Scope: model.DefaultScope(), Value: model.Plain("v"),
	})
	doc.Bindings = append(doc.Bindings, model.ValueBinding{
		Variable: "GHOST", Scope: model.DefaultScope(), Value: model.Plain("v"),
	})

	err := validate.Validate(doc, validate.Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "GHOST")
	require.Contains(t, err.Error(), "description")
}

func TestValidateCycleAcrossContexts(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	require.NoError(t, doc.AddEnvironment(model.Environment{Name: "dev"}))
	require.NoError(t, doc.AddLocation(model.Location{Name: "aws", ID: "1"}))

	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "A", Scope: model.DefaultScope(), Value: model.Plain("x"),
	}))
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "B", Scope: model.DefaultScope(), Value: model.Plain("{{ A }}"),
	}))
	// Override A, at SPECIFIC(dev,aws), to reference B -- a cycle that only
	// exists in that one context.
	require.NoError(t, doc.SetBinding(model.SetBindingOptions{
		Variable: "A", Scope: model.SpecificScope("dev", "aws"), Value: model.Plain("{{ B }}"),
	}))

	err := validate.Validate(doc, validate.Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestValidateIgnoreDefaultSecrets(t *testing.T) {
	t.Parallel()

	doc := model.NewDocument("myapp", false)
	doc.Variables["SECRET_VALUE"] = &model.Variable{Name: "SECRET_VALUE"}
	doc.Bindings = append(doc.Bindings, model.ValueBinding{
		Variable: "SECRET_VALUE", Scope: model.DefaultScope(), Value: model.Cipher("c"),
	})

	require.Error(t, validate.Validate(doc, validate.Options{}))
	require.NoError(t, validate.Validate(doc, validate.Options{IgnoreDefaultSecrets: true}))
}
