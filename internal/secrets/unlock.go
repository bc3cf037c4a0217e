package secrets

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

const MaxPasswordAttempts = 3

// PromptFunc asks the operator for a password.
type PromptFunc func(label string) (string, error)

// TerminalPrompt reads a password from the controlling terminal without echo.
func TerminalPrompt(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set SECRETS_PASSWORD for unattended runs")
	}
	fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// Unlock returns the wallet secrets. With an encrypted file it uses envPassword when
// set (one attempt) or prompts up to MaxPasswordAttempts times; otherwise it falls
// back to the plaintext key file.
func Unlock(s *Store, plainPath, envPassword string, prompt PromptFunc) ([]string, error) {
	if !s.HasEncryptedSecrets() {
		return LoadPlain(plainPath)
	}
	if envPassword != "" {
		return s.Decrypt(envPassword)
	}
	if prompt == nil {
		return nil, fmt.Errorf("secrets are encrypted and no password source is available")
	}

	for attempt := 1; attempt <= MaxPasswordAttempts; attempt++ {
		pw, err := prompt("Secrets password: ")
		if err != nil {
			return nil, err
		}
		keys, err := s.Decrypt(pw)
		if err == nil {
			return keys, nil
		}
		if !errors.Is(err, ErrAuth) {
			return nil, err
		}
		if attempt < MaxPasswordAttempts {
			fmt.Fprintln(os.Stderr, "Incorrect password, try again.")
		}
	}
	return nil, ErrAuth
}
