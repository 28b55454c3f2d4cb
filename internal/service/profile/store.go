package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/rs/zerolog/log"

	"github.com/chating-app/chating/client/internal/model/account"
	"github.com/chating-app/chating/client/internal/service/api"
)

// ErrNotLoggedIn is returned by Current when no profile has been saved.
var ErrNotLoggedIn = errors.New("not logged in")

var currentKey = []byte("profile/current")

// Store keeps the logged-in identity on disk so CLI invocations share it.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, api.Required("data dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := pebble.Open(filepath.Join(filepath.Clean(dir), "profile"), &pebble.Options{Logger: pebbleLogger{}})
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}
	return &Store{db: db}, nil
}

// pebbleLogger routes pebble's own logging into zerolog. Info lines such as
// WAL replay notices are debug noise for a CLI.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...any) {
	log.Debug().Msgf("[profile] "+format, args...)
}

func (pebbleLogger) Errorf(format string, args ...any) {
	log.Error().Msgf("[profile] "+format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...any) {
	log.Fatal().Msgf("[profile] "+format, args...)
}

// Save replaces the current profile.
func (s *Store) Save(p account.Profile) error {
	if strings.TrimSpace(p.Username) == "" {
		return api.Required("username")
	}
	val, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.db.Set(currentKey, val, pebble.Sync)
}

// Current returns the saved profile or ErrNotLoggedIn.
func (s *Store) Current() (account.Profile, error) {
	val, closer, err := s.db.Get(currentKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return account.Profile{}, ErrNotLoggedIn
	}
	if err != nil {
		return account.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	defer closer.Close()

	var p account.Profile
	if err := json.Unmarshal(val, &p); err != nil {
		return account.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// Clear forgets the current profile.
func (s *Store) Clear() error {
	return s.db.Delete(currentKey, pebble.Sync)
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
