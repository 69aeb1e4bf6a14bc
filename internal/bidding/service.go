// Package bidding owns the bid lifecycle: placing bids, accepting or
// rejecting them, withdrawal, and the read paths over bids.
package bidding

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// Service runs every bid operation against an injected store. It holds no
// cross-request state of its own.
type Service struct {
	store    store.Store
	cache    cache.Cache
	statsTTL time.Duration
	now      func() time.Time
}

// NewService creates a new Service. Worker aggregates are cached for statsTTL.
func NewService(st store.Store, ca cache.Cache, statsTTL time.Duration) *Service {
	return &Service{
		store:    st,
		cache:    ca,
		statsTTL: statsTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// notify writes n inside tx. A failed write is logged and swallowed: losing a
// notification must never undo the state change that triggered it.
func (s *Service) notify(ctx context.Context, tx store.Tx, userID uuid.UUID, typ, title, message string, relatedID uuid.UUID) {
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: s.now(),
	}
	if err := tx.CreateNotification(ctx, n); err != nil {
		slog.Warn("notification write failed",
			"error", err, "user_id", userID, "type", typ, "related_id", relatedID)
	}
}

// workerStats reads a worker's aggregates through the cache. Cache errors
// fall back to the store.
func (s *Service) workerStats(ctx context.Context, workerID uuid.UUID) (*models.WorkerStats, error) {
	if s.cache != nil {
		st, found, err := cache.GetWorkerStats(ctx, s.cache, workerID)
		if err != nil {
			slog.Warn("worker stats cache read failed", "error", err, "worker_id", workerID)
		} else if found {
			return st, nil
		}
	}

	st, err := s.store.GetWorkerStats(ctx, workerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetWorkerStats(ctx, s.cache, workerID, st, s.statsTTL); err != nil {
			slog.Warn("worker stats cache write failed", "error", err, "worker_id", workerID)
		}
	}
	return st, nil
}

// workerStatsMany reads aggregates for several workers through the cache,
// fetching every miss from the store in one call.
func (s *Service) workerStatsMany(ctx context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]*models.WorkerStats, error) {
	out := make(map[uuid.UUID]*models.WorkerStats, len(workerIDs))
	var misses []uuid.UUID
	for _, id := range workerIDs {
		if _, seen := out[id]; seen {
			continue
		}
		if s.cache != nil {
			st, found, err := cache.GetWorkerStats(ctx, s.cache, id)
			if err != nil {
				slog.Warn("worker stats cache read failed", "error", err, "worker_id", id)
			} else if found {
				out[id] = st
				continue
			}
		}
		out[id] = nil
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := s.store.GetWorkerStatsMany(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		st := fetched[id]
		if st == nil {
			st = &models.WorkerStats{}
		}
		out[id] = st
		if s.cache != nil {
			if err := cache.SetWorkerStats(ctx, s.cache, id, st, s.statsTTL); err != nil {
				slog.Warn("worker stats cache write failed", "error", err, "worker_id", id)
			}
		}
	}
	return out, nil
}

// loadBid reads a bid outside any transaction, translating a miss.
func (s *Service) loadBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	b, err := s.store.GetBid(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrBidNotFound
	}
	return b, err
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
