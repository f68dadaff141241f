// Package credential issues, resolves, and revokes long-lived API keys.
//
// A key is "rk_live_" followed by 64 hex characters of crypto/rand output. Only
// its SHA-256 digest is persisted; the plaintext is returned once, at issue.
package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/checksum"
	"github.com/starford/recall/internal/index"
	"github.com/starford/recall/internal/models"
)

const (
	// KeyPrefix marks every issued secret.
	KeyPrefix = "rk_live_"
	// keyBytes is the random part of a key (32 bytes = 64 hex chars).
	keyBytes = 32

	MaxNameRunes = 50

	touchTimeout = 5 * time.Second
)

// Issued is returned once by Issue. Secret is never retrievable again.
type Issued struct {
	Credential *models.ApiCredential `json:"credential"`
	Secret     string                `json:"secret"`
}

// Store manages API credentials on top of a CredentialRepository.
type Store struct {
	repo   index.CredentialRepository
	logger *slog.Logger
	now    func() time.Time

	touches sync.WaitGroup
}

// NewStore creates a credential store.
func NewStore(repo index.CredentialRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, logger: logger, now: time.Now}
}

// Issue mints a new key for owner with the given scopes.
func (s *Store) Issue(ctx context.Context, owner, name string, scopes []models.Scope) (*Issued, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	scopes = dedupe(scopes)
	if err := validateIssue(name, scopes); err != nil {
		return nil, err
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("credential: generate secret: %w", err)
	}

	c := &models.ApiCredential{
		ID:          uuid.NewString(),
		Owner:       owner,
		Name:        name,
		SecretHash:  checksum.SumString(secret),
		Fingerprint: Fingerprint(secret),
		Scopes:      scopes,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.InsertCredential(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("api key issued",
		slog.String("credential_id", c.ID),
		slog.String("fingerprint", c.Fingerprint),
		slog.Int("scopes", len(scopes)))
	return &Issued{Credential: c, Secret: secret}, nil
}

// List returns owner's credentials. Hashes are never serialized.
func (s *Store) List(ctx context.Context, owner string) ([]models.ApiCredential, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.ErrUnauthorized
	}
	return s.repo.ListCredentials(ctx, owner)
}

// Revoke hard-deletes one of owner's credentials. The secret stops resolving
// immediately.
func (s *Store) Revoke(ctx context.Context, owner, id string) error {
	if strings.TrimSpace(owner) == "" {
		return apperr.ErrUnauthorized
	}
	if err := s.repo.DeleteCredential(ctx, owner, id); err != nil {
		return err
	}
	s.logger.Info("api key revoked", slog.String("credential_id", id))
	return nil
}

// Resolve maps a presented secret to its credential, or apperr.ErrUnauthorized.
// On success lastUsedAt is refreshed in the background; that write never
// affects the result.
func (s *Store) Resolve(ctx context.Context, secret string) (*models.ApiCredential, error) {
	if !strings.HasPrefix(secret, KeyPrefix) || len(secret) != len(KeyPrefix)+2*keyBytes {
		return nil, apperr.ErrUnauthorized
	}
	hash := checksum.SumString(secret)
	c, err := s.repo.CredentialByHash(ctx, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !checksum.Equal(c.SecretHash, hash) {
		return nil, apperr.ErrUnauthorized
	}

	s.touches.Add(1)
	go s.touch(c.ID)
	return c, nil
}

// Flush waits for pending lastUsedAt writes.
func (s *Store) Flush() {
	s.touches.Wait()
}

func (s *Store) touch(id string) {
	defer s.touches.Done()
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()
	if err := s.repo.TouchCredential(ctx, id, s.now().UTC()); err != nil {
		s.logger.Warn("api key touch failed",
			slog.String("credential_id", id),
			slog.String("error", err.Error()))
	}
}

// Fingerprint is the display form of a secret: prefix, first and last four.
func Fingerprint(secret string) string {
	rest := strings.TrimPrefix(secret, KeyPrefix)
	if len(rest) < 8 {
		return KeyPrefix + "…"
	}
	return KeyPrefix + rest[:4] + "…" + rest[len(rest)-4:]
}

func generateSecret() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return KeyPrefix + hex.EncodeToString(b), nil
}

type issueInput struct {
	Name   string
	Scopes []models.Scope
}

func validateIssue(name string, scopes []models.Scope) error {
	in := issueInput{Name: name, Scopes: scopes}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, MaxNameRunes)),
		validation.Field(&in.Scopes, validation.Required, validation.Each(validation.By(knownScope))),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrInvalidInput, err)
	}
	return nil
}

func knownScope(value any) error {
	s, _ := value.(models.Scope)
	if !s.Valid() {
		return fmt.Errorf("unknown scope %q", s)
	}
	return nil
}

func dedupe(scopes []models.Scope) []models.Scope {
	out := make([]models.Scope, 0, len(scopes))
	for _, s := range scopes {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
