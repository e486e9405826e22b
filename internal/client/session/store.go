// Package session owns the client's persisted session state: which auth
// provider is active, its token, the cached user record, and the UI
// theme. All reads and writes of those keys go through Store so the
// provider mutual-exclusion invariant is enforced in one place.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/smartstudy/studycli/internal/client/migrations"
	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/client/repositories/kv"
	"github.com/smartstudy/studycli/internal/common"
	"github.com/smartstudy/studycli/internal/dbx"
)

// Persisted key names. They mirror the web client's storage keys, so a
// backend session is recognizable across both clients.
const (
	keyPrimaryToken   = "token"
	keyAlternateToken = "neon_access_token"
	keyProvider       = "auth_provider"
	keyUser           = "user"
	keyTheme          = "theme"
)

// DefaultTheme is used when no theme preference has been persisted.
const DefaultTheme = "dark"

// Store is the single owner of the persisted session keys.
// Activating one provider always clears the other's token.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the local state database at dsn and
// brings its schema up to date.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating state db: %w", err)
	}
	return NewStore(db), nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatal("failed to set goose dialect:", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) repo() kv.Repository {
	return kv.NewSQLiteRepository(s.db)
}

// get reads a key, mapping "absent" to an empty string.
func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.repo().Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	return v, err
}

// ActivatePrimary persists a primary-provider session: token, user
// record, and provider marker. The alternate token is removed in the
// same transaction.
func (s *Store) ActivatePrimary(ctx context.Context, token string, user models.UserSummary) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyPrimaryToken, token); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyUser, string(raw)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyProvider, string(models.ProviderPrimary)); err != nil {
			return err
		}
		return repo.Delete(ctx, keyAlternateToken)
	})
}

// ActivateAlternate persists an alternate-provider bearer token and
// clears the primary token. The cached user record is left in place
// until the profile fetch replaces it.
func (s *Store) ActivateAlternate(ctx context.Context, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAlternateToken, token); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyProvider, string(models.ProviderAlternate)); err != nil {
			return err
		}
		return repo.Delete(ctx, keyPrimaryToken)
	})
}

// SaveUser replaces the cached user record wholesale.
func (s *Store) SaveUser(ctx context.Context, user models.UserSummary) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}
	return s.repo().Set(ctx, keyUser, string(raw))
}

// ClearAlternate removes the alternate token and the provider marker.
// Used both for startup cleanup of a token that failed validation and for the
// rollback after a failed alternate-token login.
func (s *Store) ClearAlternate(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, keyAlternateToken); err != nil {
			return err
		}
		return repo.Delete(ctx, keyProvider)
	})
}

// Clear removes all session keys (logout). The theme preference stays.
func (s *Store) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		for _, key := range []string{keyPrimaryToken, keyAlternateToken, keyProvider, keyUser} {
			if err := repo.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// PrimaryToken returns the stored primary-provider token, or "" if none.
func (s *Store) PrimaryToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyPrimaryToken)
}

// AlternateToken returns the stored alternate-provider token, or "" if none.
func (s *Store) AlternateToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyAlternateToken)
}

// Provider returns the stored provider marker, or "" if none.
func (s *Store) Provider(ctx context.Context) (models.Provider, error) {
	v, err := s.get(ctx, keyProvider)
	return models.Provider(v), err
}

// User returns the cached user record, or nil when absent.
func (s *Store) User(ctx context.Context) (*models.UserSummary, error) {
	raw, err := s.get(ctx, keyUser)
	if err != nil || raw == "" {
		return nil, err
	}
	var u models.UserSummary
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decoding cached user record: %w", err)
	}
	return &u, nil
}

// Theme returns the persisted UI theme, falling back to DefaultTheme
// when the key is missing or unreadable.
func (s *Store) Theme(ctx context.Context) string {
	v, err := s.get(ctx, keyTheme)
	if err != nil || v == "" {
		return DefaultTheme
	}
	return v
}

func (s *Store) SetTheme(ctx context.Context, theme string) error {
	return s.repo().Set(ctx, keyTheme, theme)
}
