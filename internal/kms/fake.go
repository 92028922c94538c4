package kms

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/timeoutdigital/envars/internal/envarserr"
)

// Fake is an in-memory Provider for hermetic resolver/command tests,
// grounded on spec.md §9's "wire a fake adapter in tests" design note.
// Encrypt stores the plaintext in memory under a random token and returns
// that token base64-encoded as the ciphertext; it records the
// EncryptionContext alongside it so Decrypt can enforce the same
// context-binding contract real KMS providers enforce.
type Fake struct {
	store map[string]fakeEntry
}

type fakeEntry struct {
	plaintext string
	context   EncryptionContext
}

func NewFake() *Fake {
	return &Fake{store: map[string]fakeEntry{}}
}

func (f *Fake) Encrypt(_ context.Context, keyID, plaintext string, ec EncryptionContext) (string, error) {
	token := fmt.Sprintf("%s:%s", keyID, uuid.NewString())
	f.store[token] = fakeEntry{plaintext: plaintext, context: cloneContext(ec)}

	return base64.StdEncoding.EncodeToString([]byte(token)), nil
}

func (f *Fake) Decrypt(_ context.Context, _ string, ciphertext string, ec EncryptionContext) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", envarserr.ErrDecryptError)
	}

	entry, ok := f.store[string(raw)]
	if !ok {
		return "", fmt.Errorf("%w: unknown ciphertext", envarserr.ErrDecryptError)
	}

	if !contextsEqual(entry.context, ec) {
		return "", fmt.Errorf("%w: encryption context mismatch", envarserr.ErrDecryptError)
	}

	return entry.plaintext, nil
}

func cloneContext(ec EncryptionContext) EncryptionContext {
	out := make(EncryptionContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}

	return out
}

func contextsEqual(a, b EncryptionContext) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}

	return true
}
