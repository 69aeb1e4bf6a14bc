package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/api/response"
	"github.com/kiranshivaraju/bidhub/internal/jobs"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// JobService is the job catalogue the handlers depend on.
type JobService interface {
	Create(ctx context.Context, p models.Principal, params jobs.CreateParams) (*models.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
	List(ctx context.Context, filter store.JobFilter) ([]*models.JobListing, jobs.Pagination, error)
	Mine(ctx context.Context, p models.Principal, status string, page, limit int) ([]*models.JobListing, jobs.Pagination, error)
	Update(ctx context.Context, p models.Principal, id uuid.UUID, params jobs.UpdateParams) (*models.Job, error)
	Cancel(ctx context.Context, p models.Principal, id uuid.UUID) error
}

// Jobs serves the /jobs routes.
type Jobs struct {
	svc JobService
}

func NewJobs(svc JobService) *Jobs {
	return &Jobs{svc: svc}
}

type jobPage struct {
	Jobs       []*models.JobListing `json:"jobs"`
	Pagination jobs.Pagination      `json:"pagination"`
}

type createJobRequest struct {
	Title       string   `json:"title"       validate:"required"`
	Description string   `json:"description" validate:"required"`
	BudgetMin   *float64 `json:"budget_min"  validate:"required"`
	BudgetMax   *float64 `json:"budget_max"  validate:"required"`
	Location    string   `json:"location"`
	City        string   `json:"city"`
	Province    string   `json:"province"`
	Images      []string `json:"images"      validate:"omitempty,dive,url"`
}

type updateJobRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	BudgetMin   *float64 `json:"budget_min"`
	BudgetMax   *float64 `json:"budget_max"`
}

// Create handles POST /api/v1/jobs.
func (h *Jobs) Create(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to create job"
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createJobRequest
	if err := decodeBody(r, &req, "Title, description, and budget range are required"); err != nil {
		writeError(w, r, err, failed)
		return
	}

	job, err := h.svc.Create(r.Context(), p, jobs.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   *req.BudgetMin,
		BudgetMax:   *req.BudgetMax,
		Location:    req.Location,
		City:        req.City,
		Province:    req.Province,
		Images:      req.Images,
	})
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.Created(w, "Job posted successfully", job)
}

// List handles GET /api/v1/jobs.
func (h *Jobs) List(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch jobs"
	q := r.URL.Query()
	filter := store.JobFilter{
		Status:   q.Get("status"),
		City:     q.Get("city"),
		Province: q.Get("province"),
	}

	var err error
	if filter.MinBudget, err = queryFloat(r, "min_budget"); err != nil {
		writeError(w, r, err, failed)
		return
	}
	if filter.MaxBudget, err = queryFloat(r, "max_budget"); err != nil {
		writeError(w, r, err, failed)
		return
	}
	if filter.Page, err = queryInt(r, "page"); err != nil {
		writeError(w, r, err, failed)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, err, failed)
		return
	}

	list, page, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "", jobPage{Jobs: list, Pagination: page})
}

// Get handles GET /api/v1/jobs/{jobID}.
func (h *Jobs) Get(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch job"
	id, err := pathID(r, "jobID", "job")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	job, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "", job)
}

// Mine handles GET /api/v1/jobs/mine.
func (h *Jobs) Mine(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch jobs"
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	list, pg, err := h.svc.Mine(r.Context(), p, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "", jobPage{Jobs: list, Pagination: pg})
}

// Update handles PUT /api/v1/jobs/{jobID}.
func (h *Jobs) Update(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to update job"
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "jobID", "job")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	var req updateJobRequest
	if err := decodeBody(r, &req, "Invalid job update"); err != nil {
		writeError(w, r, err, failed)
		return
	}

	job, err := h.svc.Update(r.Context(), p, id, jobs.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
	})
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "Job updated successfully", job)
}

// Cancel handles DELETE /api/v1/jobs/{jobID}.
func (h *Jobs) Cancel(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to delete job"
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "jobID", "job")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	if err := h.svc.Cancel(r.Context(), p, id); err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "Job cancelled successfully", nil)
}
