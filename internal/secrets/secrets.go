// Package secrets keeps the wallet private keys encrypted at rest.
//
// The file is a JSON envelope holding a PBKDF2-SHA256 salt, the iteration count,
// an AES-256-GCM nonce and the sealed newline-joined key list. The password is
// never stored and neither keys nor password are ever logged.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// ErrAuth is returned for a wrong password or a tampered file.
var ErrAuth = errors.New("unable to decrypt secrets")

const (
	envelopeVersion   = 1
	kdfName           = "pbkdf2-sha256"
	DefaultIterations = 600_000
	MinIterations     = 1000
	saltSize          = 16
	keySize           = 32
)

type envelope struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store is the encrypted secrets file.
type Store struct {
	path string
	// Iterations applies to new encryptions; decryption uses the file's count.
	Iterations int
}

func NewStore(path string) *Store {
	return &Store{path: path, Iterations: DefaultIterations}
}

func (s *Store) Path() string { return s.path }

// HasEncryptedSecrets reports whether an encrypted file exists.
func (s *Store) HasEncryptedSecrets() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Encrypt seals the secrets, exactly as given and in order, under password with a fresh salt and nonce and
// atomically replaces the file (mode 0600).
func (s *Store) Encrypt(secrets []string, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no secrets to encrypt")
	}
	iterations := s.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if iterations < MinIterations {
		return fmt.Errorf("kdf iterations %d below minimum %d", iterations, MinIterations)
	}
	plain, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(password, salt, iterations)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	env := envelope{
		Version:    envelopeVersion,
		KDF:        kdfName,
		Iterations: iterations,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plain, nil),
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return writeAtomic(s.path, data)
}

// Decrypt returns the secrets in their original order. Any failure to open the
// envelope with password yields ErrAuth and no secrets.
func (s *Store) Decrypt(password string) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrAuth
	}
	if env.Version != envelopeVersion || env.KDF != kdfName || env.Iterations <= 0 || len(env.Salt) == 0 {
		return nil, ErrAuth
	}

	gcm, err := newGCM(password, env.Salt, env.Iterations)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != gcm.NonceSize() {
		return nil, ErrAuth
	}
	plain, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuth
	}
	var secrets []string
	if err := json.Unmarshal(plain, &secrets); err != nil {
		return nil, ErrAuth
	}
	return secrets, nil
}

// LoadPlain reads a newline-separated key file, skipping blank lines and # comments.
func LoadPlain(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}
	keys := splitSecrets(string(data))
	if len(keys) == 0 {
		return nil, fmt.Errorf("keys file %s is empty", path)
	}
	return keys, nil
}

func splitSecrets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func newGCM(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".secrets-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename secrets file: %w", err)
	}
	return nil
}
