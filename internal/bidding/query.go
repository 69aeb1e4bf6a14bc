package bidding

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// statusRank orders bids for the job owner: actionable ones first.
func statusRank(status string) int {
	switch status {
	case models.BidStatusPending:
		return 0
	case models.BidStatusAccepted:
		return 1
	default:
		return 2
	}
}

// ListBidsForJob returns every bid on a job the caller owns, enriched with
// the bidder's profile and review aggregates. Pending bids come first, then
// accepted, then the rest, newest first within each group.
func (s *Service) ListBidsForJob(ctx context.Context, p models.Principal, jobID uuid.UUID) ([]*models.JobBid, error) {
	if err := authz.CheckAttempt(p, authz.OpListJobBids); err != nil {
		return nil, err
	}
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := authz.Check(p, authz.OpListJobBids, authz.Resource{CustomerID: job.CustomerID}); err != nil {
		return nil, err
	}

	bids, err := s.store.ListJobBids(ctx, jobID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bids, func(i, j int) bool {
		ri, rj := statusRank(bids[i].Status), statusRank(bids[j].Status)
		if ri != rj {
			return ri < rj
		}
		return bids[i].CreatedAt.After(bids[j].CreatedAt)
	})

	ids := make([]uuid.UUID, len(bids))
	for i, b := range bids {
		ids[i] = b.WorkerID
	}
	stats, err := s.workerStatsMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, b := range bids {
		b.WorkerStats = *stats[b.WorkerID]
	}
	return bids, nil
}

// ListMyBids returns the caller's bids joined with job summaries. An
// unrecognised status filter is ignored. The customer's phone number is only
// disclosed once the bid is accepted.
func (s *Service) ListMyBids(ctx context.Context, p models.Principal, status string) ([]*models.WorkerBid, error) {
	if err := authz.Check(p, authz.OpListMyBids, authz.Resource{}); err != nil {
		return nil, err
	}
	if !models.ValidBidStatus(status) {
		status = ""
	}

	bids, err := s.store.ListWorkerBids(ctx, store.BidFilter{WorkerID: p.ID, Status: status})
	if err != nil {
		return nil, err
	}
	for _, b := range bids {
		if b.Status != models.BidStatusAccepted {
			b.CustomerPhone = nil
		}
		if b.JobImages == nil {
			b.JobImages = []string{}
		}
	}
	return bids, nil
}

// GetBid returns a bid's detail to its job's customer or its bidder.
func (s *Service) GetBid(ctx context.Context, p models.Principal, bidID uuid.UUID) (*models.BidDetail, error) {
	if err := authz.CheckAttempt(p, authz.OpViewBid); err != nil {
		return nil, err
	}
	detail, err := s.store.GetBidDetail(ctx, bidID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrBidNotFound
	}
	if err != nil {
		return nil, err
	}
	res := authz.Resource{CustomerID: detail.CustomerID, WorkerID: detail.WorkerID}
	if err := authz.Check(p, authz.OpViewBid, res); err != nil {
		return nil, err
	}

	st, err := s.workerStats(ctx, detail.WorkerID)
	if err != nil {
		return nil, err
	}
	detail.Rating = st.Rating
	detail.TotalReviews = st.TotalReviews
	return detail, nil
}
