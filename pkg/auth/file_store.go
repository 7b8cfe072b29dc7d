package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore implements CredentialStore over plain auth.json files.
//
// Each profile keeps its own <configdir>/<profile>/auth.json with the
// familiar {"auth": {...}} layout, so files written by hand or carried
// over from other tools keep working.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// authFile is the on-disk layout of auth.json
type authFile struct {
	Auth Auth `json:"auth"`
}

// NewFileStore creates a store rooted at the given config directory
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Path returns the auth.json location for a profile
func (f *FileStore) Path(profile string) string {
	return filepath.Join(f.baseDir, profile, "auth.json")
}

// Store writes auth.json for the account's profile
func (f *FileStore) Store(account *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if account == nil || account.Profile == "" {
		return ErrInvalidCredentials
	}

	path := f.Path(account.Profile)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := json.MarshalIndent(authFile{Auth: account.Auth}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth.json: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write auth.json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace auth.json: %w", err)
	}

	return nil
}

// Retrieve reads auth.json for a profile
func (f *FileStore) Retrieve(profile string) (*Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.readAccount(profile)
}

// readAccount loads a profile's auth.json; callers hold the lock
func (f *FileStore) readAccount(profile string) (*Account, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	path := f.Path(profile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read auth.json: %w", err)
	}

	var file authFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse auth.json: %w", err)
	}

	modified := time.Time{}
	if info, err := os.Stat(path); err == nil {
		modified = info.ModTime()
	}

	return &Account{
		Profile:      profile,
		Auth:         file.Auth,
		LastModified: modified,
	}, nil
}

// List returns accounts for every profile directory containing an auth.json
func (f *FileStore) List() ([]*Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Account{}, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var accounts []*Account
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if account, err := f.readAccount(entry.Name()); err == nil {
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}

// Delete removes auth.json for a profile
func (f *FileStore) Delete(profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if profile == "" {
		return ErrInvalidCredentials
	}

	path := f.Path(profile)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to remove auth.json: %w", err)
	}

	return nil
}

// Exists checks if auth.json exists for a profile
func (f *FileStore) Exists(profile string) bool {
	if profile == "" {
		return false
	}
	_, err := os.Stat(f.Path(profile))
	return err == nil
}
