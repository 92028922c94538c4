package kms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeoutdigital/envars/internal/kms"
	"github.com/timeoutdigital/envars/internal/model"
)

func TestFakeRoundTrip(t *testing.T) {
	t.Parallel()

	f := kms.NewFake()
	ctx := context.Background()
	ec := kms.BuildContext("myapp", model.SpecificScope("dev", "aws"))

	cipher, err := f.Encrypt(ctx, "key-1", "super-secret", ec)
	require.NoError(t, err)

	plain, err := f.Decrypt(ctx, "key-1", cipher, ec)
	require.NoError(t, err)
	assert.Equal(t, "super-secret", plain)
}

func TestFakeRejectsContextMismatch(t *testing.T) {
	t.Parallel()

	f := kms.NewFake()
	ctx := context.Background()
	encryptCtx := kms.BuildContext("myapp", model.SpecificScope("dev", "aws"))
	decryptCtx := kms.BuildContext("myapp", model.SpecificScope("dev", "gcp"))

	cipher, err := f.Encrypt(ctx, "key-1", "p", encryptCtx)
	require.NoError(t, err)

	_, err = f.Decrypt(ctx, "key-1", cipher, decryptCtx)
	require.Error(t, err)
}

func TestBuildContextOmitsAbsentFields(t *testing.T) {
	t.Parallel()

	ec := kms.BuildContext("myapp", model.DefaultScope())
	assert.Equal(t, kms.EncryptionContext{"app": "myapp"}, ec)

	ec = kms.BuildContext("myapp", model.EnvironmentScope("dev"))
	assert.Equal(t, kms.EncryptionContext{"app": "myapp", "env": "dev"}, ec)
}
