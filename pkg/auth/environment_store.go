package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// This is primarily for CI and headless daemon deployments.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(profile string) (*Account, error) {
	a := Auth{
		Sess:      os.Getenv("SUBSCRAPER_SESS"),
		AuthID:    os.Getenv("SUBSCRAPER_AUTH_ID"),
		AuthUID:   os.Getenv("SUBSCRAPER_AUTH_UID"),
		UserAgent: os.Getenv("SUBSCRAPER_USER_AGENT"),
		XBC:       os.Getenv("SUBSCRAPER_X_BC"),
	}

	if a.Sess == "" || a.AuthID == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't carry a profile name
	if profile == "" {
		profile = "main_profile"
	}

	return &Account{
		Profile:      profile,
		Auth:         a,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv("SUBSCRAPER_SESS") != "" && os.Getenv("SUBSCRAPER_AUTH_ID") != ""
}
