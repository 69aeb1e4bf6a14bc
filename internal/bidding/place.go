package bidding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/authz"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

const (
	minProposalLength = 10
	maxDurationLength = 100
)

// PlaceBidParams holds the caller-supplied fields of a new bid.
type PlaceBidParams struct {
	JobID             uuid.UUID
	Amount            float64
	Proposal          string
	EstimatedDuration *string
}

// PlaceBid records a pending bid and notifies the job's customer.
// Preconditions are checked in a fixed order and the first failure wins.
func (s *Service) PlaceBid(ctx context.Context, p models.Principal, params PlaceBidParams) (*models.Bid, error) {
	if err := authz.Check(p, authz.OpPlaceBid, authz.Resource{}); err != nil {
		return nil, err
	}
	switch {
	case !(params.Amount > 0):
		return nil, apperr.ErrInvalidAmount
	case params.Amount > models.MaxAmount:
		return nil, apperr.ErrAmountTooLarge
	case !models.HasCentsPrecision(params.Amount):
		return nil, apperr.ErrAmountPrecision
	}
	if utf8.RuneCountInString(strings.TrimSpace(params.Proposal)) < minProposalLength {
		return nil, apperr.ErrProposalTooShort
	}

	duration := params.EstimatedDuration
	if duration != nil && strings.TrimSpace(*duration) == "" {
		duration = nil
	}
	if duration != nil && utf8.RuneCountInString(*duration) > maxDurationLength {
		return nil, apperr.ErrDurationTooLong
	}

	var bid *models.Bid
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		// Shared lock: concurrent placements proceed, accept and cancel wait.
		job, err := tx.LockJob(ctx, params.JobID, store.LockShare)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if job.CustomerID == p.ID {
			return apperr.ErrOwnJob
		}
		if job.Status != models.JobStatusOpen {
			return apperr.ErrJobNotOpen
		}

		if _, err := tx.FindBid(ctx, job.ID, p.ID); err == nil {
			return apperr.ErrDuplicateBid
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hasProfile, err := tx.HasWorkerProfile(ctx, p.ID)
		if err != nil {
			return err
		}
		if !hasProfile {
			return apperr.ErrProfileIncomplete
		}

		now := s.now()
		bid = &models.Bid{
			ID:                uuid.New(),
			JobID:             job.ID,
			WorkerID:          p.ID,
			Amount:            params.Amount,
			Proposal:          params.Proposal,
			EstimatedDuration: duration,
			Status:            models.BidStatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.CreateBid(ctx, bid); err != nil {
			// A concurrent placement by the same worker won the unique index.
			if errors.Is(err, store.ErrDuplicateKey) {
				return apperr.ErrDuplicateBid
			}
			return err
		}

		s.notify(ctx, tx, job.CustomerID, models.NotificationNewBid, "New Bid Received",
			fmt.Sprintf("You received a new bid of $%s on your job \"%s\"", formatAmount(bid.Amount), job.Title),
			bid.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}
