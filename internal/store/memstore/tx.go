package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// memTx runs with Store.mu held, so it touches s.d directly.
type memTx struct {
	s *Store
}

var _ store.Tx = (*memTx)(nil)

func (t *memTx) LockJob(_ context.Context, id uuid.UUID, _ store.LockMode) (*models.Job, error) {
	j, ok := t.s.d.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (t *memTx) UpdateJob(_ context.Context, j *models.Job) error {
	cur, ok := t.s.d.jobs[j.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Title = j.Title
	cur.Description = j.Description
	cur.BudgetMin = j.BudgetMin
	cur.BudgetMax = j.BudgetMax
	cur.UpdatedAt = time.Now().UTC()
	t.s.d.jobs[j.ID] = cur
	return nil
}

func (t *memTx) SetJobStatus(_ context.Context, id uuid.UUID, status string) error {
	j, ok := t.s.d.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	t.s.d.jobs[id] = j
	return nil
}

func (t *memTx) LockBid(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	b, ok := t.s.d.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) FindBid(_ context.Context, jobID, workerID uuid.UUID) (*models.Bid, error) {
	for _, b := range t.s.d.bids {
		if b.JobID == jobID && b.WorkerID == workerID {
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) CountBids(_ context.Context, jobID uuid.UUID, status string) (int, error) {
	n := 0
	for _, b := range t.s.d.bids {
		if b.JobID == jobID && b.Status == status {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CreateBid(ctx context.Context, b *models.Bid) error {
	if _, ok := t.s.d.bids[b.ID]; ok {
		return store.ErrDuplicateKey
	}
	if _, err := t.FindBid(ctx, b.JobID, b.WorkerID); err == nil {
		return store.ErrDuplicateKey
	}
	t.s.d.bids[b.ID] = *b
	return nil
}

func (t *memTx) SetBidStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := t.s.d.bids[id]
	if !ok {
		return store.ErrNotFound
	}
	if status == models.BidStatusAccepted {
		for _, other := range t.s.d.bids {
			if other.JobID == b.JobID && other.ID != id && other.Status == models.BidStatusAccepted {
				return store.ErrDuplicateKey
			}
		}
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	t.s.d.bids[id] = b
	return nil
}

func (t *memTx) RejectPendingBids(_ context.Context, jobID, exceptID uuid.UUID) ([]*models.Bid, error) {
	var rejected []*models.Bid
	ts := time.Now().UTC()
	for id, b := range t.s.d.bids {
		if b.JobID != jobID || id == exceptID || b.Status != models.BidStatusPending {
			continue
		}
		b.Status = models.BidStatusRejected
		b.UpdatedAt = ts
		t.s.d.bids[id] = b
		b := b
		rejected = append(rejected, &b)
	}
	return rejected, nil
}

func (t *memTx) DeleteBid(_ context.Context, id uuid.UUID) error {
	if _, ok := t.s.d.bids[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.s.d.bids, id)
	return nil
}

func (t *memTx) HasWorkerProfile(_ context.Context, userID uuid.UUID) (bool, error) {
	_, ok := t.s.d.profiles[userID]
	return ok, nil
}

func (t *memTx) CreateBooking(_ context.Context, b *models.Booking) error {
	for _, existing := range t.s.d.bookings {
		if existing.JobID == b.JobID {
			return store.ErrDuplicateKey
		}
	}
	t.s.d.bookings[b.ID] = *b
	return nil
}

func (t *memTx) HasActiveBooking(_ context.Context, jobID uuid.UUID) (bool, error) {
	for _, b := range t.s.d.bookings {
		if b.JobID == jobID &&
			(b.Status == models.BookingStatusConfirmed || b.Status == models.BookingStatusInProgress) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateNotification(_ context.Context, n *models.Notification) error {
	if t.s.FailNotifications {
		return ErrNotificationsDisabled
	}
	t.s.d.notifications = append(t.s.d.notifications, *n)
	return nil
}
