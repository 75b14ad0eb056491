// Package credential reads and writes mail-butler secrets in the OS keyring.
package credential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "mail-butler"

// Keys used for secrets that are not set in the environment
const (
	KeyIMAPPassword = "imap-password"
	KeySMTPPassword = "smtp-password"
	KeyLLMAPIKey    = "llm-api-key"
)

// Keys lists every key the keyring is consulted for
var Keys = []string{KeyIMAPPassword, KeySMTPPassword, KeyLLMAPIKey}

// ValidKey rejects keys no configuration field reads
func ValidKey(key string) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("unknown credential %q, want one of %s", key, strings.Join(Keys, ", "))
}

// ReadSecret reads the secret from the first line of r
func ReadSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("empty secret")
	}
	return secret, nil
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mail-butler/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mail-butler-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get returns the secret stored under key. A missing key is not an error
// and yields an empty string.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key
func Set(key, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}
