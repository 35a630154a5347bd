package llmclient

import (
	"strings"
	"sync"
)

// placeholderMarker flags keys copied verbatim from example env files.
const placeholderMarker = "YOUR_"

// KeyStore holds the API key used by the model clients. It replaces ambient
// global state: clients read the key on every call, and SetKey is the only way
// to change it at runtime.
type KeyStore struct {
	mu  sync.RWMutex
	key string
}

// NewKeyStore creates a store seeded with the configured key.
func NewKeyStore(initial string) *KeyStore {
	return &KeyStore{key: strings.TrimSpace(initial)}
}

// SetKey replaces the current key.
func (k *KeyStore) SetKey(key string) {
	k.mu.Lock()
	k.key = strings.TrimSpace(key)
	k.mu.Unlock()
}

// Key returns the current key, or ErrNoCredentials when it is empty or a placeholder.
func (k *KeyStore) Key() (string, error) {
	k.mu.RLock()
	key := k.key
	k.mu.RUnlock()

	if key == "" || strings.Contains(key, placeholderMarker) {
		return "", ErrNoCredentials
	}
	return key, nil
}

// Configured reports whether a usable key is present.
func (k *KeyStore) Configured() bool {
	_, err := k.Key()
	return err == nil
}
