package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadPlaintext(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	blob := []byte(`{"noise_key":"abc"}`)
	require.NoError(t, store.Save("alice", blob))

	got, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// Plaintext stores write the blob as-is.
	onDisk, err := os.ReadFile(filepath.Join(store.Path("alice"), credFileName))
	require.NoError(t, err)
	assert.Equal(t, blob, onDisk)
}

func TestSaveLoadSealed(t *testing.T) {
	store, err := New(t.TempDir(), &Options{Passphrase: "hunter2"})
	require.NoError(t, err)

	blob := []byte(`{"noise_key":"abc"}`)
	require.NoError(t, store.Save("alice", blob))

	got, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// Sealed stores must not leave the plaintext on disk.
	onDisk, err := os.ReadFile(filepath.Join(store.Path("alice"), credFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(onDisk), "noise_key")
}

func TestLoadMissing(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Load("nobody")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestListReturnsSessionDirs(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("a")))
	require.NoError(t, store.Save("bob", []byte("b")))
	// Stray files at the root are not sessions.
	require.NoError(t, os.WriteFile(filepath.Join(store.root, "README"), []byte("x"), 0o600))

	ids, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)
}

func TestRemove(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Save("alice", []byte("a")))
	require.NoError(t, store.Remove("alice"))

	ids, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Removing an absent session is not an error.
	assert.NoError(t, store.Remove("alice"))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	sealed, err := Seal("passphrase", []byte("secret material"))
	require.NoError(t, err)

	plain, err := Open("passphrase", sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret material"), plain)
}

func TestEnvelopeWrongPassphrase(t *testing.T) {
	sealed, err := Seal("right", []byte("secret"))
	require.NoError(t, err)

	_, err = Open("wrong", sealed)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestEnvelopeTamperDetection(t *testing.T) {
	sealed, err := Seal("passphrase", []byte("secret"))
	require.NoError(t, err)

	// Flip one ciphertext byte near the end of the envelope.
	sealed[len(sealed)-10] ^= 0xFF
	_, err = Open("passphrase", sealed)
	assert.Error(t, err)
}

func TestEnvelopeRejectsForeignData(t *testing.T) {
	_, err := Open("passphrase", []byte("not an envelope"))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}
