package bidding_test

import (
	"context"
	"sync"
	"testing"
	"time"

	gofakeit "github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/internal/bidding"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/internal/store/storetest"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPrincipal(t *testing.T, s store.Store, role string) models.Principal {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	u := &models.User{
		ID: uuid.New(), FullName: gofakeit.Name(), Email: gofakeit.Email(), Phone: gofakeit.Phone(),
		Role: role, IsVerified: true, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateUser(ctx, u))
	if role == models.RoleWorker {
		_, err := s.UpsertWorkerProfile(ctx, &models.WorkerProfile{
			UserID: u.ID, Bio: gofakeit.Blurb(), CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
	}
	return u.Principal()
}

func TestPostgres_ConcurrentAcceptCreatesOneBooking(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := storetest.Postgres(t)
	s := store.NewPostgresStore(pool)
	svc := bidding.NewService(s, cache.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	customer := seedPrincipal(t, s, models.RoleCustomer)
	now := time.Now().UTC()
	job := &models.Job{
		ID: uuid.New(), CustomerID: customer.ID, Title: "Rewire the garage",
		Description: "Garage needs new wiring and two extra outlets installed.",
		BudgetMin:   500, BudgetMax: 900, Status: models.JobStatusOpen, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	const bidders = 6
	bids := make([]*models.Bid, bidders)
	for i := range bids {
		b, err := svc.PlaceBid(ctx, seedPrincipal(t, s, models.RoleWorker), bidding.PlaceBidParams{
			JobID: job.ID, Amount: float64(600 + i*10), Proposal: "Certified electrician, available now",
		})
		require.NoError(t, err)
		bids[i] = b
	}

	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := range bids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AcceptBid(ctx, customer, bids[i].ID)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, won)

	var bookings, accepted int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE job_id = $1`, job.ID).Scan(&bookings))
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bids WHERE job_id = $1 AND status = 'accepted'`, job.ID).Scan(&accepted))
	assert.Equal(t, 1, bookings)
	assert.Equal(t, 1, accepted)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAssigned, got.Status)

	var rejectedNotes int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE type = 'bid_rejected'`).Scan(&rejectedNotes))
	assert.Equal(t, bidders-1, rejectedNotes)
}

func TestPostgres_OutOfRangeInputIsValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(storetest.Postgres(t))
	svc := bidding.NewService(s, cache.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	customer := seedPrincipal(t, s, models.RoleCustomer)
	worker := seedPrincipal(t, s, models.RoleWorker)
	now := time.Now().UTC()
	job := &models.Job{
		ID: uuid.New(), CustomerID: customer.ID, Title: "Paint the fence",
		Description: "Forty metres of picket fence need two coats of paint.",
		BudgetMin:   200, BudgetMax: 400, Status: models.JobStatusOpen, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	for _, amount := range []float64{1e10, 6000.555} {
		_, err := svc.PlaceBid(ctx, worker, bidding.PlaceBidParams{
			JobID: job.ID, Amount: amount, Proposal: "Two coats, done in a weekend",
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "amount %v: %v", amount, err)
	}

	bid, err := svc.PlaceBid(ctx, worker, bidding.PlaceBidParams{
		JobID: job.ID, Amount: models.MaxAmount, Proposal: "Two coats, done in a weekend",
	})
	require.NoError(t, err)
	got, err := s.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, bid.Amount, got.Amount)
}
