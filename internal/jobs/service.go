// Package jobs implements the customer-owned job path: posting, browsing,
// editing and cancelling jobs.
package jobs

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

const (
	minTitleLength       = 5
	maxTitleLength       = 255
	minDescriptionLength = 20
	maxImages            = 5
	maxLocationLength    = 255
	maxRegionLength      = 128
)

// CreateParams holds the fields of a new job.
type CreateParams struct {
	Title       string
	Description string
	BudgetMin   float64
	BudgetMax   float64
	Location    string
	City        string
	Province    string
	Images      []string
}

// UpdateParams is a partial edit. Nil fields keep their current value.
type UpdateParams struct {
	Title       *string
	Description *string
	BudgetMin   *float64
	BudgetMax   *float64
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Service runs job operations against an injected store.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a new Service.
func NewService(st store.Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Create posts a new open job owned by the caller.
func (s *Service) Create(ctx context.Context, p models.Principal, params CreateParams) (*models.Job, error) {
	if err := authz.Check(p, authz.OpCreateJob, authz.Resource{}); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	if err := validateFields(title, description, params.BudgetMin, params.BudgetMax); err != nil {
		return nil, err
	}
	if len(params.Images) > maxImages {
		return nil, apperr.Validation("A job can have at most 5 images")
	}
	location := strings.TrimSpace(params.Location)
	city := strings.TrimSpace(params.City)
	province := strings.TrimSpace(params.Province)
	switch {
	case utf8.RuneCountInString(location) > maxLocationLength:
		return nil, apperr.Validation("Location must be at most 255 characters long")
	case utf8.RuneCountInString(city) > maxRegionLength:
		return nil, apperr.Validation("City must be at most 128 characters long")
	case utf8.RuneCountInString(province) > maxRegionLength:
		return nil, apperr.Validation("Province must be at most 128 characters long")
	}

	now := s.now()
	job := &models.Job{
		ID:          uuid.New(),
		CustomerID:  p.ID,
		Title:       title,
		Description: description,
		BudgetMin:   params.BudgetMin,
		BudgetMax:   params.BudgetMax,
		Location:    location,
		City:        city,
		Province:    province,
		Images:      params.Images,
		Status:      models.JobStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if job.Images == nil {
		job.Images = []string{}
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns a job by id with its poster's name and bid counts. Jobs are
// public.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	job, err := s.store.GetJobListing(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrJobNotFound
	}
	return job, err
}

// List browses jobs. An empty status filter means open jobs only.
func (s *Service) List(ctx context.Context, filter store.JobFilter) ([]*models.JobListing, Pagination, error) {
	if filter.Status == "" {
		filter.Status = models.JobStatusOpen
	}
	filter.CustomerID = uuid.Nil
	return s.list(ctx, filter)
}

// Mine lists the caller's own jobs, optionally narrowed by status.
func (s *Service) Mine(ctx context.Context, p models.Principal, status string, page, limit int) ([]*models.JobListing, Pagination, error) {
	return s.list(ctx, store.JobFilter{CustomerID: p.ID, Status: status, Page: page, Limit: limit})
}

func (s *Service) list(ctx context.Context, filter store.JobFilter) ([]*models.JobListing, Pagination, error) {
	if filter.Status != "" && !models.ValidJobStatus(filter.Status) {
		return nil, Pagination{}, apperr.Validation("Invalid status filter. Must be one of: open, assigned, completed, cancelled")
	}
	if filter.MinBudget != nil && filter.MaxBudget != nil && *filter.MinBudget > *filter.MaxBudget {
		return nil, Pagination{}, apperr.Validation("min_budget cannot exceed max_budget")
	}

	jobs, total, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}
	page, limit, _ := filter.Normalize()
	return jobs, Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Update edits an open job that has no accepted bid. The job row lock makes
// this mutually exclusive with bid acceptance.
func (s *Service) Update(ctx context.Context, p models.Principal, id uuid.UUID, params UpdateParams) (*models.Job, error) {
	var job *models.Job
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		job, err = s.lockOwned(ctx, tx, p, authz.OpEditJob, id)
		if err != nil {
			return err
		}

		accepted, err := tx.CountBids(ctx, id, models.BidStatusAccepted)
		if err != nil {
			return err
		}
		if accepted > 0 {
			return apperr.ErrJobHasAcceptedBid
		}
		if job.Status != models.JobStatusOpen {
			return apperr.JobClosed(job.Status)
		}

		if params.Title != nil {
			job.Title = strings.TrimSpace(*params.Title)
		}
		if params.Description != nil {
			job.Description = strings.TrimSpace(*params.Description)
		}
		if params.BudgetMin != nil {
			job.BudgetMin = *params.BudgetMin
		}
		if params.BudgetMax != nil {
			job.BudgetMax = *params.BudgetMax
		}
		if err := validateFields(job.Title, job.Description, job.BudgetMin, job.BudgetMax); err != nil {
			return err
		}

		job.UpdatedAt = s.now()
		return tx.UpdateJob(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Cancel moves the caller's job to cancelled unless a booking is active.
func (s *Service) Cancel(ctx context.Context, p models.Principal, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		job, err := s.lockOwned(ctx, tx, p, authz.OpCancelJob, id)
		if err != nil {
			return err
		}

		active, err := tx.HasActiveBooking(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return apperr.ErrJobHasActiveBooking
		}
		if job.Status == models.JobStatusCancelled || job.Status == models.JobStatusCompleted {
			return apperr.JobClosed(job.Status)
		}
		return tx.SetJobStatus(ctx, id, models.JobStatusCancelled)
	})
}

func (s *Service) lockOwned(ctx context.Context, tx store.Tx, p models.Principal, op authz.Operation, id uuid.UUID) (*models.Job, error) {
	if err := authz.CheckAttempt(p, op); err != nil {
		return nil, err
	}
	job, err := tx.LockJob(ctx, id, store.LockUpdate)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := authz.Check(p, op, authz.Resource{CustomerID: job.CustomerID}); err != nil {
		return nil, err
	}
	return job, nil
}

func validateFields(title, description string, budgetMin, budgetMax float64) error {
	switch {
	case utf8.RuneCountInString(title) < minTitleLength:
		return apperr.Validation("Title must be at least 5 characters long")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return apperr.Validation("Title must be at most 255 characters long")
	case utf8.RuneCountInString(description) < minDescriptionLength:
		return apperr.Validation("Description must be at least 20 characters long")
	case !(budgetMin > 0):
		return apperr.Validation("Minimum budget must be greater than 0")
	case budgetMax < budgetMin:
		return apperr.Validation("Maximum budget must be greater than or equal to minimum budget")
	case budgetMax > models.MaxAmount:
		return apperr.Validation("Budget cannot exceed 9999999999.99")
	case !models.HasCentsPrecision(budgetMin) || !models.HasCentsPrecision(budgetMax):
		return apperr.Validation("Budget can have at most 2 decimal places")
	}
	return nil
}
