// Package tokens stores OAuth tokens on disk, one file per provider account.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const appName = "daycal"

// Store reads and writes token-<provider>-<account>.json files in Dir.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir, or at $XDG_DATA_HOME/daycal when dir is empty.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = filepath.Join(xdg.DataHome, appName)
	}
	return &Store{Dir: dir}
}

// Path returns the token file for an account.
func (s *Store) Path(provider, account string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("token-%s-%s.json", provider, account))
}

// Save writes a token with owner-only permissions.
func (s *Store) Save(provider, account string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(s.Path(provider, account), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// Load reads the token for an account.
func (s *Store) Load(provider, account string) (*oauth2.Token, error) {
	f, err := os.Open(s.Path(provider, account))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return tok, nil
}

// Accounts lists the account names that have a token for provider.
func (s *Store) Accounts(provider string) ([]string, error) {
	files, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	prefix := "token-" + provider + "-"
	var accounts []string
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		accounts = append(accounts, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
	}
	return accounts, nil
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}
