package bidding

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// WithdrawBid deletes the caller's pending bid, freeing the (job, worker)
// slot for a later bid. No notification is sent.
func (s *Service) WithdrawBid(ctx context.Context, p models.Principal, bidID uuid.UUID) error {
	if err := authz.CheckAttempt(p, authz.OpWithdrawBid); err != nil {
		return err
	}
	ref, err := s.loadBid(ctx, bidID)
	if err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(tx store.Tx) error {
		// Shared job lock orders withdrawal against a concurrent accept.
		if _, err := tx.LockJob(ctx, ref.JobID, store.LockShare); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrBidNotFound
			}
			return err
		}
		bid, err := tx.LockBid(ctx, bidID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrBidNotFound
		}
		if err != nil {
			return err
		}

		if err := authz.Check(p, authz.OpWithdrawBid, authz.Resource{WorkerID: bid.WorkerID}); err != nil {
			return err
		}
		if bid.Status != models.BidStatusPending {
			return apperr.ErrWithdrawNotPending
		}
		return tx.DeleteBid(ctx, bid.ID)
	})
}
