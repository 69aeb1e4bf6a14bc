package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/api/response"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/bidding"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// BidService is the bid lifecycle the handlers depend on.
type BidService interface {
	PlaceBid(ctx context.Context, p models.Principal, params bidding.PlaceBidParams) (*models.Bid, error)
	AcceptBid(ctx context.Context, p models.Principal, bidID uuid.UUID) (*bidding.AcceptResult, error)
	RejectBid(ctx context.Context, p models.Principal, bidID uuid.UUID) (*models.Bid, error)
	WithdrawBid(ctx context.Context, p models.Principal, bidID uuid.UUID) error
	ListBidsForJob(ctx context.Context, p models.Principal, jobID uuid.UUID) ([]*models.JobBid, error)
	ListMyBids(ctx context.Context, p models.Principal, status string) ([]*models.WorkerBid, error)
	GetBid(ctx context.Context, p models.Principal, bidID uuid.UUID) (*models.BidDetail, error)
}

// Bids serves the /bids routes and the per-job bid listing.
type Bids struct {
	svc BidService
}

func NewBids(svc BidService) *Bids {
	return &Bids{svc: svc}
}

type placeBidRequest struct {
	JobID             string   `json:"job_id"             validate:"required"`
	BidAmount         *float64 `json:"bid_amount"         validate:"required"`
	Proposal          string   `json:"proposal"           validate:"required"`
	EstimatedDuration *string  `json:"estimated_duration" validate:"omitempty,max=100"`
}

// Place handles POST /api/v1/bids.
func (h *Bids) Place(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to place bid. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req placeBidRequest
	if err := decodeBody(r, &req, "Job ID, bid amount, and proposal are required"); err != nil {
		writeError(w, r, err, failed)
		return
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		writeError(w, r, apperr.Validation("Invalid job ID"), failed)
		return
	}

	bid, err := h.svc.PlaceBid(r.Context(), p, bidding.PlaceBidParams{
		JobID:             jobID,
		Amount:            *req.BidAmount,
		Proposal:          req.Proposal,
		EstimatedDuration: req.EstimatedDuration,
	})
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.Created(w, "Bid placed successfully", bid)
}

// ListForJob handles GET /api/v1/jobs/{jobID}/bids.
func (h *Bids) ListForJob(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch bids. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}
	jobID, err := pathID(r, "jobID", "job")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	bids, err := h.svc.ListBidsForJob(r.Context(), p, jobID)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.List(w, bids, len(bids))
}

// Mine handles GET /api/v1/bids/my.
func (h *Bids) Mine(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch your bids. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bids, err := h.svc.ListMyBids(r.Context(), p, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.List(w, bids, len(bids))
}

// Get handles GET /api/v1/bids/{bidID}.
func (h *Bids) Get(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to fetch bid details. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, err := pathID(r, "bidID", "bid")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	bid, err := h.svc.GetBid(r.Context(), p, bidID)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "", bid)
}

// Accept handles PUT /api/v1/bids/{bidID}/accept.
func (h *Bids) Accept(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to accept bid. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, err := pathID(r, "bidID", "bid")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	res, err := h.svc.AcceptBid(r.Context(), p, bidID)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "Bid accepted successfully", res)
}

// Reject handles PUT /api/v1/bids/{bidID}/reject.
func (h *Bids) Reject(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to reject bid. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, err := pathID(r, "bidID", "bid")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	bid, err := h.svc.RejectBid(r.Context(), p, bidID)
	if err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "Bid rejected successfully", bid)
}

// Withdraw handles DELETE /api/v1/bids/{bidID}.
func (h *Bids) Withdraw(w http.ResponseWriter, r *http.Request) {
	const failed = "Failed to withdraw bid. Please try again."
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, err := pathID(r, "bidID", "bid")
	if err != nil {
		writeError(w, r, err, failed)
		return
	}

	if err := h.svc.WithdrawBid(r.Context(), p, bidID); err != nil {
		writeError(w, r, err, failed)
		return
	}
	response.OK(w, "Bid withdrawn successfully", nil)
}
