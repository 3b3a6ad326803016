// Package wallet is the local signing wallet used by send. Account metadata
// lives in a JSON file; private keys live in a secret store (the OS keychain
// in production).
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/w3studio/internal/settings"
)

// Errors.
var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
	ErrInvalidKey     = errors.New("invalid private key")
	ErrNoDefault      = errors.New("no default wallet; import one with `w3studio wallet import`")
)

// Account is the public metadata of one wallet.
type Account struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	KeyRef    string `json:"key_ref"`
	IsDefault bool   `json:"is_default,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Store persists account metadata.
type Store interface {
	Load() ([]*Account, error)
	Save([]*Account) error
}

// Manager handles wallet CRUD.
type Manager struct {
	store    Store
	secrets  settings.Store
	accounts map[string]*Account
	loaded   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the metadata store. The default keeps accounts in memory.
func WithStore(s Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// NewManager returns a Manager keeping private keys in secrets.
func NewManager(secrets settings.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    &memStore{},
		secrets:  secrets,
		accounts: make(map[string]*Account),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Import derives the address of hexKey and stores the key under name. The
// first imported wallet becomes the default.
func (m *Manager) Import(name, hexKey string) (*Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	if _, exists := m.accounts[name]; exists {
		return nil, ErrWalletExists
	}
	key, err := crypto.HexToECDSA(stripHexPrefix(strings.TrimSpace(hexKey)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	ref := "wallet." + name
	if err := m.secrets.Set(ref, stripHexPrefix(strings.TrimSpace(hexKey))); err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}
	a := &Account{
		Name:      name,
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		KeyRef:    ref,
		IsDefault: len(m.accounts) == 0,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.accounts[name] = a
	return a, m.persist()
}

// Get returns an account by name.
func (m *Manager) Get(name string) (*Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	a, ok := m.accounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	return a, nil
}

// Remove deletes an account and its key.
func (m *Manager) Remove(name string) error {
	a, err := m.Get(name)
	if err != nil {
		return err
	}
	if err := m.secrets.Delete(a.KeyRef); err != nil {
		return fmt.Errorf("removing key: %w", err)
	}
	delete(m.accounts, name)
	return m.persist()
}

// List returns all accounts sorted by name.
func (m *Manager) List() ([]*Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetDefault marks an account as the default.
func (m *Manager) SetDefault(name string) error {
	if _, err := m.Get(name); err != nil {
		return err
	}
	for _, a := range m.accounts {
		a.IsDefault = a.Name == name
	}
	return m.persist()
}

// Default returns the default account. A single account is the default
// even when unmarked.
func (m *Manager) Default() (*Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.IsDefault {
			return a, nil
		}
	}
	if len(m.accounts) == 1 {
		for _, a := range m.accounts {
			return a, nil
		}
	}
	return nil, ErrNoDefault
}

// privateKey loads the key of a.
func (m *Manager) privateKey(a *Account) (*ecdsa.PrivateKey, error) {
	hexKey, err := m.secrets.Get(a.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key for %s: %w", a.Name, err)
	}
	key, err := crypto.HexToECDSA(stripHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// --- internal ---

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	accounts, err := m.store.Load()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		m.accounts[a.Name] = a
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	accounts := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return m.store.Save(accounts)
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

// --- in-memory store ---

type memStore struct {
	accounts []*Account
}

func (s *memStore) Load() ([]*Account, error) {
	return s.accounts, nil
}

func (s *memStore) Save(accounts []*Account) error {
	s.accounts = accounts
	return nil
}

// --- JSON file store ---

// JSONStore persists accounts to a JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed account store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Load() ([]*Account, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var accounts []*Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return accounts, nil
}

func (s *JSONStore) Save(accounts []*Account) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
