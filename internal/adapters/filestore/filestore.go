// Package filestore provides a file-backed credential store. The blob is a
// single JSON document written atomically (temp file + rename) so a crash
// mid-save can never leave a partial credential on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

var _ ports.CredentialStore = (*Store)(nil)

// Store persists the renewal credential and cached profile to a local file.
type Store struct {
	path string
}

// New creates a file-backed credential store at the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. A missing file is not an error; it returns
// the zero state.
func (s *Store) Load(_ context.Context) (domainauth.PersistedState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domainauth.PersistedState{}, nil
		}
		return domainauth.PersistedState{}, fmt.Errorf("read credential file: %w", err)
	}

	var state domainauth.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return domainauth.PersistedState{}, fmt.Errorf("unmarshal credential file: %w", err)
	}
	return state, nil
}

// Save writes the whole blob atomically, replacing any previous state.
func (s *Store) Save(_ context.Context, state domainauth.PersistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal credential state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credential file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Clear removes the credential file. Clearing an absent file is a no-op.
func (s *Store) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
