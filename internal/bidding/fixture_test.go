package bidding_test

import (
	"context"
	"testing"
	"time"

	gofakeit "github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/bidding"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/internal/store/memstore"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t     *testing.T
	store *memstore.Store
	cache *cache.MemoryCache
	svc   *bidding.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	ca := cache.NewMemoryCache()
	return &fixture{t: t, store: st, cache: ca, svc: bidding.NewService(st, ca, time.Minute)}
}

func (f *fixture) user(role string) models.Principal {
	f.t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:         uuid.New(),
		FullName:   gofakeit.Name(),
		Email:      gofakeit.Email(),
		Phone:      gofakeit.Phone(),
		Role:       role,
		IsVerified: true,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(f.t, f.store.CreateUser(context.Background(), u))
	return u.Principal()
}

// worker creates a worker with a completed profile.
func (f *fixture) worker() models.Principal {
	f.t.Helper()
	p := f.user(models.RoleWorker)
	_, err := f.store.UpsertWorkerProfile(context.Background(), &models.WorkerProfile{
		UserID: p.ID, Bio: gofakeit.Blurb(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) job(customer models.Principal, budgetMin, budgetMax float64) *models.Job {
	f.t.Helper()
	now := time.Now().UTC()
	j := &models.Job{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		Title:       "Fix leaking bathroom pipe",
		Description: "The pipe under the bathroom sink has been leaking for two days.",
		BudgetMin:   budgetMin,
		BudgetMax:   budgetMax,
		City:        gofakeit.City(),
		Status:      models.JobStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(f.t, f.store.CreateJob(context.Background(), j))
	return j
}

func (f *fixture) bid(worker models.Principal, job *models.Job, amount float64) *models.Bid {
	f.t.Helper()
	b, err := f.svc.PlaceBid(context.Background(), worker, bidding.PlaceBidParams{
		JobID:    job.ID,
		Amount:   amount,
		Proposal: "I can fix this leak today",
	})
	require.NoError(f.t, err)
	return b
}

func (f *fixture) bidStatus(id uuid.UUID) string {
	f.t.Helper()
	b, err := f.store.GetBid(context.Background(), id)
	require.NoError(f.t, err)
	return b.Status
}

func (f *fixture) jobStatus(id uuid.UUID) string {
	f.t.Helper()
	j, err := f.store.GetJob(context.Background(), id)
	require.NoError(f.t, err)
	return j.Status
}

func (f *fixture) setJobStatus(id uuid.UUID, status string) {
	f.t.Helper()
	require.NoError(f.t, f.store.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.SetJobStatus(context.Background(), id, status)
	}))
}

func (f *fixture) setBidStatus(id uuid.UUID, status string) {
	f.t.Helper()
	require.NoError(f.t, f.store.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.SetBidStatus(context.Background(), id, status)
	}))
}

func ptr[T any](v T) *T { return &v }
