package bidding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// AcceptResult is the outcome of a successful acceptance.
type AcceptResult struct {
	Bid     *models.Bid     `json:"bid"`
	Booking *models.Booking `json:"booking"`
}

// lockedBid is a pending bid and its job, both row-locked, after the
// principal has passed the ownership check for op.
type lockedBid struct {
	bid *models.Bid
	job *models.Job
}

// lockPendingBid takes the job lock first and then re-reads the bid under its
// own lock, so every status decision is made on committed state that no
// concurrent acceptance can change before this transaction ends.
func lockPendingBid(ctx context.Context, tx store.Tx, p models.Principal, op authz.Operation, jobID, bidID uuid.UUID) (*lockedBid, error) {
	job, err := tx.LockJob(ctx, jobID, store.LockUpdate)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrBidNotFound
	}
	if err != nil {
		return nil, err
	}

	bid, err := tx.LockBid(ctx, bidID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrBidNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := authz.Check(p, op, authz.Resource{CustomerID: job.CustomerID}); err != nil {
		return nil, err
	}
	if bid.Status != models.BidStatusPending {
		return nil, apperr.BidNotPending(bid.Status)
	}
	return &lockedBid{bid: bid, job: job}, nil
}

// AcceptBid accepts a pending bid. In one transaction it rejects every other
// pending bid on the job, assigns the job, creates the booking and notifies
// the winner and each newly rejected bidder.
func (s *Service) AcceptBid(ctx context.Context, p models.Principal, bidID uuid.UUID) (*AcceptResult, error) {
	if err := authz.CheckAttempt(p, authz.OpAcceptBid); err != nil {
		return nil, err
	}
	ref, err := s.loadBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	var result *AcceptResult
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		locked, err := lockPendingBid(ctx, tx, p, authz.OpAcceptBid, ref.JobID, bidID)
		if err != nil {
			return err
		}
		bid, job := locked.bid, locked.job
		if job.Status != models.JobStatusOpen {
			return apperr.ErrJobNotOpen
		}

		if err := tx.SetBidStatus(ctx, bid.ID, models.BidStatusAccepted); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return apperr.ErrJobNotOpen
			}
			return err
		}
		rejected, err := tx.RejectPendingBids(ctx, job.ID, bid.ID)
		if err != nil {
			return err
		}
		if err := tx.SetJobStatus(ctx, job.ID, models.JobStatusAssigned); err != nil {
			return err
		}

		now := s.now()
		booking := &models.Booking{
			ID:          uuid.New(),
			JobID:       job.ID,
			CustomerID:  p.ID,
			WorkerID:    bid.WorkerID,
			AgreedPrice: bid.Amount,
			Status:      models.BookingStatusConfirmed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return apperr.ErrJobNotOpen
			}
			return err
		}

		s.notify(ctx, tx, bid.WorkerID, models.NotificationBidAccepted, "Your Bid Was Accepted!",
			fmt.Sprintf("Congratulations! Your bid of $%s for \"%s\" was accepted", formatAmount(bid.Amount), job.Title),
			booking.ID)
		for _, r := range rejected {
			s.notify(ctx, tx, r.WorkerID, models.NotificationBidRejected, "Bid Not Accepted",
				fmt.Sprintf("Your bid for \"%s\" was not accepted. The customer has chosen another worker.", job.Title),
				r.ID)
		}

		bid.Status = models.BidStatusAccepted
		bid.UpdatedAt = now
		result = &AcceptResult{Bid: bid, Booking: booking}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RejectBid rejects a single pending bid. The job and its other bids are not
// touched.
func (s *Service) RejectBid(ctx context.Context, p models.Principal, bidID uuid.UUID) (*models.Bid, error) {
	if err := authz.CheckAttempt(p, authz.OpRejectBid); err != nil {
		return nil, err
	}
	ref, err := s.loadBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	var bid *models.Bid
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		locked, err := lockPendingBid(ctx, tx, p, authz.OpRejectBid, ref.JobID, bidID)
		if err != nil {
			return err
		}
		if err := tx.SetBidStatus(ctx, locked.bid.ID, models.BidStatusRejected); err != nil {
			return err
		}

		s.notify(ctx, tx, locked.bid.WorkerID, models.NotificationBidRejected, "Bid Not Accepted",
			fmt.Sprintf("Your bid for \"%s\" was not accepted by the customer.", locked.job.Title),
			locked.bid.ID)

		bid = locked.bid
		bid.Status = models.BidStatusRejected
		bid.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}
