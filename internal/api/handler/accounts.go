package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/bidhub/internal/accounts"
	"github.com/kiranshivaraju/bidhub/internal/api/response"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// AccountService manages users and worker profiles.
type AccountService interface {
	CreateUser(ctx context.Context, admin models.Principal, params accounts.CreateUserParams) (*models.User, string, error)
	GetProfile(ctx context.Context, p models.Principal) (*models.WorkerProfile, error)
	UpsertProfile(ctx context.Context, p models.Principal, params accounts.ProfileParams) (*models.WorkerProfile, error)
}

// Accounts serves the profile and admin routes.
type Accounts struct {
	svc AccountService
}

func NewAccounts(svc AccountService) *Accounts {
	return &Accounts{svc: svc}
}

type createUserRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email"     validate:"required,email"`
	Phone    string `json:"phone"     validate:"omitempty,max=32"`
	Role     string `json:"role"      validate:"required"`
	Verified bool   `json:"is_verified"`
}

type createdUser struct {
	User   *models.User `json:"user"`
	APIKey string       `json:"api_key"`
}

type profileRequest struct {
	Bio        string   `json:"bio"         validate:"max=2000"`
	HourlyRate *float64 `json:"hourly_rate"`
}

// CreateUser handles POST /api/v1/admin/users. The raw key is only ever
// returned here.
func (h *Accounts) CreateUser(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to create user"
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := decodeBody(r, &req, "Full name, a valid email, and role are required"); err != nil {
		writeError(w, r, err, failed)
		return
	}

	user, rawKey, err := h.svc.CreateUser(r.Context(), p, accounts.CreateUserParams{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Verified: req.Verified,
	})
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.Created(w, "User created successfully", createdUser{User: user, APIKey: rawKey})
}

// GetProfile handles GET /api/v1/profile/worker.
func (h *Accounts) GetProfile(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch profile"
	p, ok := principal(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), p)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "", profile)
}

// PutProfile handles PUT /api/v1/profile/worker.
func (h *Accounts) PutProfile(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to update profile"
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeBody(r, &req, "Bio must be at most 2000 characters"); err != nil {
		writeError(w, r, err, failed)
		return
	}

	profile, err := h.svc.UpsertProfile(r.Context(), p, accounts.ProfileParams{
		Bio:        req.Bio,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "Profile updated successfully", profile)
}
