package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Auth holds the header and cookie values the platform API requires.
// The JSON keys match the auth.json layout users fill in by hand.
type Auth struct {
	Sess      string `json:"sess"`
	AuthID    string `json:"auth_id"`
	AuthUID   string `json:"auth_uid,omitempty"`
	UserAgent string `json:"user_agent"`
	XBC       string `json:"x-bc"`
}

// Account binds an Auth record to a profile
type Account struct {
	Profile      string    `json:"profile"`
	Auth         Auth      `json:"auth"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks that the required auth fields are present.
// auth_uid is optional; the API derives it from auth_id when absent.
func (a *Auth) Validate() error {
	var errs []error
	if a.Sess == "" {
		errs = append(errs, errors.New("sess cookie is required"))
	}
	if a.AuthID == "" {
		errs = append(errs, errors.New("auth_id is required"))
	}
	if a.UserAgent == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}
	if a.XBC == "" {
		errs = append(errs, errors.New("x-bc header is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given profile
	Store(account *Account) error

	// Retrieve gets credentials for a specific profile
	Retrieve(profile string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific profile
	Delete(profile string) error

	// Exists checks if credentials exist for a profile
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage backends.
//
// The fallback chain is: system keychain, encrypted file, plain auth.json,
// environment variables. Retrieval walks the chain in order; storing uses
// the first store that accepts the write.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Plain auth.json per profile, for users migrating hand-edited files
	stores = append(stores, NewFileStore(configDir))

	// Environment variables as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over an explicit store chain (for tests)
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first available store
func (m *Manager) Store(account *Account) error {
	if account.Profile == "" {
		return errors.New("profile is required")
	}
	if err := account.Auth.Validate(); err != nil {
		return err
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(profile string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(profile); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for profile: %s", profile)
}

// RetrieveDefault gets credentials for the default profile or the first available
func (m *Manager) RetrieveDefault() (*Account, error) {
	if account, err := m.Retrieve("main_profile"); err == nil {
		return account, nil
	}

	accounts, err := m.List()
	if err == nil && len(accounts) > 0 {
		return accounts[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List returns all stored accounts from all stores
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			// Use the most recently modified version
			if existing, ok := accountMap[account.Profile]; !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Profile] = account
			}
		}
	}

	var result []*Account
	for _, account := range accountMap {
		result = append(result, account)
	}

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(profile string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for profile: %s", profile)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	if dir := os.Getenv("SUBSCRAPER_CONFIG_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create config directory: %w", err)
		}
		return dir, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "subscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "subscraper")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "subscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "subscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount creates a copy of the account with sensitive data masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Profile: account.Profile,
		Auth: Auth{
			Sess:      maskString(account.Auth.Sess),
			AuthID:    account.Auth.AuthID,
			AuthUID:   account.Auth.AuthUID,
			UserAgent: account.Auth.UserAgent,
			XBC:       maskString(account.Auth.XBC),
		},
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
