package secrets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "secrets.enc"))
	s.Iterations = 1000
	return s
}

func TestEncryptDecrypt_RoundTripKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	keys := []string{"0xaaa", " 0xbbb ", "", "#0xccc", "0xddd\n0xeee"}

	assert.False(t, s.HasEncryptedSecrets())
	require.NoError(t, s.Encrypt(keys, "hunter2"))
	assert.True(t, s.HasEncryptedSecrets())

	got, err := s.Decrypt("hunter2")
	require.NoError(t, err)
	assert.Equal(t, keys, got)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestDecrypt_WrongPassword(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Encrypt([]string{"0xaaa"}, "right"))

	got, err := s.Decrypt("wrong")
	assert.ErrorIs(t, err, ErrAuth)
	assert.Nil(t, got)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Encrypt([]string{"0xaaa", "0xbbb"}, "pw"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.Ciphertext[0] ^= 0xff
	data, err = json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0600))

	got, err := s.Decrypt("pw")
	assert.ErrorIs(t, err, ErrAuth)
	assert.Nil(t, got)
}

func TestEncrypt_FreshSaltAndNonce(t *testing.T) {
	s := newTestStore(t)
	read := func() envelope {
		data, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	}

	require.NoError(t, s.Encrypt([]string{"0xaaa"}, "pw"))
	first := read()
	require.NoError(t, s.Encrypt([]string{"0xaaa"}, "pw"))
	second := read()

	assert.Equal(t, 1000, first.Iterations)
	assert.Equal(t, kdfName, first.KDF)
	assert.Len(t, first.Salt, saltSize)
	assert.Len(t, first.Nonce, 12)
	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Nonce, second.Nonce)
}

func TestEncrypt_RejectsWeakIterations(t *testing.T) {
	s := newTestStore(t)
	s.Iterations = 1
	err := s.Encrypt([]string{"0xaaa"}, "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below minimum")
	assert.False(t, s.HasEncryptedSecrets())

	s.Iterations = MinIterations
	require.NoError(t, s.Encrypt([]string{"0xaaa"}, "pw"))
}

func TestEncrypt_RejectsEmptyInput(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Encrypt(nil, "pw"))
	assert.Error(t, s.Encrypt([]string{"0xaaa"}, ""))
	assert.False(t, s.HasEncryptedSecrets())
}

func TestLoadPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	require.NoError(t, os.WriteFile(path, []byte("# fleet\n0xaaa\n\n  0xbbb  \n"), 0600))

	keys, err := LoadPlain(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, keys)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n# nothing\n"), 0600))
	_, err = LoadPlain(empty)
	assert.Error(t, err)
}

func TestUnlock_PlainFallback(t *testing.T) {
	s := newTestStore(t)
	plain := filepath.Join(t.TempDir(), "keys.txt")
	require.NoError(t, os.WriteFile(plain, []byte("0xaaa\n"), 0600))

	keys, err := Unlock(s, plain, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa"}, keys)
}

func TestUnlock_EnvPassword(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Encrypt([]string{"0xaaa"}, "pw"))

	keys, err := Unlock(s, "", "pw", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa"}, keys)

	_, err = Unlock(s, "", "nope", nil)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestUnlock_PromptRetries(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Encrypt([]string{"0xaaa", "0xbbb"}, "pw"))

	answers := []string{"bad", "worse", "pw"}
	calls := 0
	prompt := func(string) (string, error) {
		a := answers[calls]
		calls++
		return a, nil
	}
	keys, err := Unlock(s, "", "", prompt)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, keys)
	assert.Equal(t, 3, calls)

	calls = 0
	answers = []string{"a", "b", "c"}
	keys, err = Unlock(s, "", "", prompt)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Nil(t, keys)
	assert.Equal(t, MaxPasswordAttempts, calls)
}
