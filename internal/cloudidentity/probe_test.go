package cloudidentity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/cloudidentity"
	"github.com/timeoutdigital/envars/internal/model"
)

type fakeProbe struct {
	id  string
	err error
}

func (f fakeProbe) AccountID(context.Context) (string, error) {
	return f.id, f.err
}

func buildDoc(t *testing.T) *model.Document {
	t.Helper()

	d := model.NewDocument("myapp", false)
	require.NoError(t, d.AddLocation(model.Location{Name: "aws", ID: "111111111111"}))
	require.NoError(t, d.AddLocation(model.Location{Name: "aws-eu", ID: "222222222222"}))

	return d
}

func TestLocateMatchesByID(t *testing.T) {
	t.Parallel()

	doc := buildDoc(t)

	loc, found, err := cloudidentity.Locate(context.Background(), doc, fakeProbe{id: "222222222222"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "aws-eu", loc.Name)
}

func TestLocateNoMatch(t *testing.T) {
	t.Parallel()

	doc := buildDoc(t)

	_, found, err := cloudidentity.Locate(context.Background(), doc, fakeProbe{id: "999999999999"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocatePropagatesProbeError(t *testing.T) {
	t.Parallel()

	doc := buildDoc(t)

	_, _, err := cloudidentity.Locate(context.Background(), doc, fakeProbe{err: errors.New("no credentials")})
	require.Error(t, err)
}

func TestForProviderNoneForPlaintextDocument(t *testing.T) {
	t.Parallel()

	_, ok := cloudidentity.ForProvider(model.ProviderNone)
	assert.False(t, ok)
}
