package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/w3studio/internal/source"
)

// Scope selects where a value lives.
type Scope int

const (
	// Session values last for the session: a process for the server, the
	// user cache file for the CLI.
	Session Scope = iota
	// Persistent values survive restarts; secrets go to the keychain.
	Persistent
)

func (s Scope) String() string {
	if s == Persistent {
		return "persistent"
	}
	return "session"
}

// Well-known keys.
const (
	KeyExplorerAPIKey = "explorer_api_key"
	KeyAIAPIKey       = "ai_api_key"
	KeyLastContract   = "last_contract"
)

// LastContract is the single cached "last loaded contract" slot.
type LastContract struct {
	ChainID    int64                      `json:"chain_id"`
	Address    string                     `json:"address"`
	Descriptor *source.ContractDescriptor `json:"descriptor,omitempty"`
	LoadedAt   time.Time                  `json:"loaded_at"`
}

// Settings combines a session and a persistent store. Callers read values
// here and pass them on explicitly; nothing below the command layer reads
// Settings on its own.
type Settings struct {
	session    Store
	persistent Store
}

// New returns Settings over the two stores. A nil session store gets an
// in-memory one.
func New(session, persistent Store) *Settings {
	if session == nil {
		session = NewMemoryStore()
	}
	if persistent == nil {
		persistent = NewMemoryStore()
	}
	return &Settings{session: session, persistent: persistent}
}

func (s *Settings) store(scope Scope) Store {
	if scope == Persistent {
		return s.persistent
	}
	return s.session
}

// Get reads key, preferring the session value.
func (s *Settings) Get(key string) (string, error) {
	v, err := s.session.Get(key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return s.persistent.Get(key)
}

// Set writes key in scope.
func (s *Settings) Set(scope Scope, key, value string) error {
	return s.store(scope).Set(key, value)
}

// Delete removes key from both scopes.
func (s *Settings) Delete(key string) error {
	return errors.Join(s.session.Delete(key), s.persistent.Delete(key))
}

// Clear empties one scope.
func (s *Settings) Clear(scope Scope) error {
	return s.store(scope).Clear()
}

// String returns key or "" when unset or unreadable.
func (s *Settings) String(key string) string {
	v, err := s.Get(key)
	if err != nil {
		return ""
	}
	return v
}

// LastContract returns the cached slot, or nil when empty.
func (s *Settings) LastContract() (*LastContract, error) {
	raw, err := s.session.Get(KeyLastContract)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lc LastContract
	if err := json.Unmarshal([]byte(raw), &lc); err != nil {
		// A corrupt slot is as good as an empty one.
		_ = s.session.Delete(KeyLastContract)
		return nil, nil
	}
	return &lc, nil
}

// SetLastContract overwrites the slot.
func (s *Settings) SetLastContract(lc LastContract) error {
	if lc.LoadedAt.IsZero() {
		lc.LoadedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(lc)
	if err != nil {
		return fmt.Errorf("encoding last contract: %w", err)
	}
	return s.session.Set(KeyLastContract, string(raw))
}

// ClearLastContract empties the slot.
func (s *Settings) ClearLastContract() error {
	return s.session.Delete(KeyLastContract)
}
