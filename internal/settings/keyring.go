package settings

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/99designs/keyring"
)

// KeychainService is the OS keychain service name.
const KeychainService = "w3studio"

// OpenKeyring opens the OS keychain, falling back to the file backend on
// headless Linux or when no native backend is available.
func OpenKeyring(fileDir string) (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName:              KeychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(KeychainService),
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}
	ring, err := keyring.Open(cfg)
	if err == nil {
		return ring, nil
	}
	cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	ring, ferr := keyring.Open(cfg)
	if ferr != nil {
		return nil, fmt.Errorf("opening keychain: %w", errors.Join(err, ferr))
	}
	return ring, nil
}

// KeyringStore is a Store over a keyring. Keys are namespaced with prefix.
type KeyringStore struct {
	ring   keyring.Keyring
	prefix string
}

// NewKeyringStore wraps ring. Entries are stored as "<prefix>.<key>".
func NewKeyringStore(ring keyring.Keyring, prefix string) *KeyringStore {
	if prefix == "" {
		prefix = KeychainService
	}
	return &KeyringStore{ring: ring, prefix: prefix}
}

func (k *KeyringStore) ref(key string) string { return k.prefix + "." + key }

func (k *KeyringStore) Get(key string) (string, error) {
	item, err := k.ring.Get(k.ref(key))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return string(item.Data), nil
}

func (k *KeyringStore) Set(key, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   k.ref(key),
		Data:  []byte(value),
		Label: KeychainService + " " + key,
	})
	if err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete(key string) error {
	err := k.ring.Remove(k.ref(key))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keychain remove: %w", err)
	}
	return nil
}

func (k *KeyringStore) Keys() ([]string, error) {
	all, err := k.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keychain list: %w", err)
	}
	var keys []string
	for _, ref := range all {
		if strings.HasPrefix(ref, k.prefix+".") {
			keys = append(keys, strings.TrimPrefix(ref, k.prefix+"."))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (k *KeyringStore) Clear() error {
	keys, err := k.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := k.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
