// Package accounts is the identity adapter: it issues and verifies API keys
// and manages users and worker profiles.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefixLen is the length of the plaintext lookup prefix of a key.
	KeyPrefixLen = 8
	keyScheme    = "bh_"

	maxNameLength  = 255
	maxPhoneLength = 32
)

// ErrInvalidKey is returned when no stored key matches the presented one.
var ErrInvalidKey = errors.New("invalid api key")

// CreateUserParams holds the fields of a new user.
type CreateUserParams struct {
	FullName string
	Email    string
	Phone    string
	Role     string
	Verified bool
}

// ProfileParams holds a worker's editable profile fields.
type ProfileParams struct {
	Bio        string
	HourlyRate *float64
}

// Service manages users, API keys and worker profiles.
type Service struct {
	store store.Store
	cost  int
	now   func() time.Time
}

// NewService creates a new Service hashing keys at bcrypt.DefaultCost.
func NewService(st store.Store) *Service {
	return &Service{store: st, cost: bcrypt.DefaultCost, now: func() time.Time { return time.Now().UTC() }}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Authenticate resolves a raw bearer key to its user. The first KeyPrefixLen
// characters select candidate keys; the full key is compared with bcrypt.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*models.User, error) {
	if len(rawKey) < KeyPrefixLen {
		return nil, ErrInvalidKey
	}
	keys, err := s.store.GetAPIKeyByPrefix(ctx, rawKey[:KeyPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("look up api key: %w", err)
	}

	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) != nil {
			continue
		}
		user, err := s.store.GetUser(ctx, key.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidKey
		}
		if err != nil {
			return nil, fmt.Errorf("load key owner: %w", err)
		}

		// Update last_used_at async
		go func(id uuid.UUID) {
			if err := s.store.UpdateAPIKeyLastUsed(context.Background(), id); err != nil {
				slog.Warn("failed to record api key use", "error", err, "key_id", id)
			}
		}(key.ID)
		return user, nil
	}
	return nil, ErrInvalidKey
}

// CreateUser registers a user and returns it together with a freshly issued
// raw API key. The raw key is never stored and cannot be recovered.
func (s *Service) CreateUser(ctx context.Context, admin models.Principal, params CreateUserParams) (*models.User, string, error) {
	if err := authz.Check(admin, authz.OpManageUsers, authz.Resource{}); err != nil {
		return nil, "", err
	}
	switch params.Role {
	case models.RoleCustomer, models.RoleWorker, models.RoleAdmin:
	default:
		return nil, "", apperr.Validation("Role must be one of: customer, worker, admin")
	}

	fullName := strings.TrimSpace(params.FullName)
	email := strings.ToLower(strings.TrimSpace(params.Email))
	phone := strings.TrimSpace(params.Phone)
	switch {
	case utf8.RuneCountInString(fullName) > maxNameLength:
		return nil, "", apperr.Validation("Full name must be at most 255 characters long")
	case utf8.RuneCountInString(email) > maxNameLength:
		return nil, "", apperr.Validation("Email must be at most 255 characters long")
	case utf8.RuneCountInString(phone) > maxPhoneLength:
		return nil, "", apperr.Validation("Phone must be at most 32 characters long")
	}

	now := s.now()
	user := &models.User{
		ID:         uuid.New(),
		FullName:   fullName,
		Email:      email,
		Phone:      phone,
		Role:       params.Role,
		IsVerified: params.Verified,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, "", apperr.ErrEmailTaken
		}
		return nil, "", err
	}

	rawKey, err := s.IssueKey(ctx, user.ID, "default")
	if err != nil {
		return nil, "", err
	}
	return user, rawKey, nil
}

// BootstrapAdmin registers an admin for email so a fresh deployment has
// someone who can create users. created is false when the address is taken.
func (s *Service) BootstrapAdmin(ctx context.Context, email string) (rawKey string, created bool, err error) {
	system := models.Principal{Role: models.RoleAdmin, Verified: true, Active: true}
	_, rawKey, err = s.CreateUser(ctx, system, CreateUserParams{
		FullName: "Administrator",
		Email:    email,
		Role:     models.RoleAdmin,
		Verified: true,
	})
	if errors.Is(err, apperr.ErrEmailTaken) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rawKey, true, nil
}

// IssueKey creates a new API key for userID and returns the raw key.
func (s *Service) IssueKey(ctx context.Context, userID uuid.UUID, name string) (string, error) {
	rawKey, err := generateKey()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}

	now := s.now()
	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:KeyPrefixLen],
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return "", fmt.Errorf("store api key: %w", err)
	}
	return rawKey, nil
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyScheme + hex.EncodeToString(buf), nil
}

// GetProfile returns the caller's worker profile.
func (s *Service) GetProfile(ctx context.Context, p models.Principal) (*models.WorkerProfile, error) {
	if err := authz.Check(p, authz.OpManageProfile, authz.Resource{}); err != nil {
		return nil, err
	}
	profile, err := s.store.GetWorkerProfile(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrProfileNotFound
	}
	return profile, err
}

// UpsertProfile creates or replaces the caller's worker profile. Having one is
// what lets a worker place bids.
func (s *Service) UpsertProfile(ctx context.Context, p models.Principal, params ProfileParams) (*models.WorkerProfile, error) {
	if err := authz.Check(p, authz.OpManageProfile, authz.Resource{}); err != nil {
		return nil, err
	}
	if rate := params.HourlyRate; rate != nil {
		switch {
		case *rate < 0:
			return nil, apperr.Validation("Hourly rate cannot be negative")
		case *rate > models.MaxHourlyRate:
			return nil, apperr.Validation("Hourly rate cannot exceed 99999999.99")
		case !models.HasCentsPrecision(*rate):
			return nil, apperr.Validation("Hourly rate can have at most 2 decimal places")
		}
	}
	now := s.now()
	return s.store.UpsertWorkerProfile(ctx, &models.WorkerProfile{
		UserID:     p.ID,
		Bio:        strings.TrimSpace(params.Bio),
		HourlyRate: params.HourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}
