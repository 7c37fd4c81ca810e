package config

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// KeyringService namespaces askSQL secrets in the OS credential store.
const KeyringService = "asksql"

// SecretStore keeps provider API keys outside the config file.
type SecretStore interface {
	Get(provider string) (string, error)
	Set(provider, key string) error
	Delete(provider string) error
}

// ErrSecretNotFound is returned when no key is stored for a provider.
var ErrSecretNotFound = errors.New("secret not found")

// KeyringStore is a SecretStore backed by the OS keychain.
type KeyringStore struct {
	ring keyring.Keyring
}

// OpenKeyring opens the platform keychain (macOS Keychain, Windows
// Credential Manager, Secret Service, pass or an encrypted file).
func OpenKeyring() (*KeyringStore, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      KeyringService,
		KeychainName:     KeyringService,
		PassPrefix:       KeyringService,
		FileDir:          dir + "/keys",
		FilePasswordFunc: keyring.TerminalPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("open keychain: %w", err)
	}
	return NewKeyringStore(ring), nil
}

// NewKeyringStore wraps an opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func itemKey(provider string) string { return "api_key_" + provider }

func (s *KeyringStore) Get(provider string) (string, error) {
	item, err := s.ring.Get(itemKey(provider))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (s *KeyringStore) Set(provider, key string) error {
	return s.ring.Set(keyring.Item{
		Key:   itemKey(provider),
		Data:  []byte(key),
		Label: "askSQL " + provider + " API key",
	})
}

func (s *KeyringStore) Delete(provider string) error {
	err := s.ring.Remove(itemKey(provider))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrSecretNotFound
	}
	return err
}

// ResolveSecrets fills provider API keys that neither the file nor the
// environment supplied. Lookup failures leave the key empty; NewProvider
// reports the missing credential.
func (c *AppConfig) ResolveSecrets(store SecretStore) {
	if store == nil {
		return
	}
	for _, name := range ProviderNames {
		if !NeedsAPIKey(name) {
			continue
		}
		probe := c.AI
		probe.Provider = name
		if probe.APIKey() != "" {
			continue
		}
		if key, err := store.Get(name); err == nil && key != "" {
			c.AI.SetAPIKey(name, key)
		}
	}
}
