// Package credential stores secrets in the OS keyring.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "sloth-organize"

// GeminiAPIKey is the keyring entry holding the AI service key.
const GeminiAPIKey = "gemini-api-key"

// openKeyring returns a configured keyring instance.
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
		FileDir:                  "~/.config/sloth-organize/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("sloth-organize-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: "SlothOrganize " + key}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Resolve returns explicit when set. Otherwise, if lookup is enabled,
// it asks get for key and returns "" on any failure.
func Resolve(explicit string, lookup bool, key string, get func(string) (string, error)) (value, source string) {
	if explicit != "" {
		return explicit, "env"
	}
	if !lookup {
		return "", ""
	}
	if get == nil {
		get = Get
	}
	v, err := get(key)
	if err != nil || v == "" {
		return "", ""
	}
	return v, "keyring"
}
