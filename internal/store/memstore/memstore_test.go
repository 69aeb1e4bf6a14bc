package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/internal/store/memstore"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJob(t *testing.T, s *memstore.Store) *models.Job {
	t.Helper()
	j := &models.Job{
		ID: uuid.New(), CustomerID: uuid.New(), Title: "Paint fence", Status: models.JobStatusOpen,
		BudgetMin: 10, BudgetMax: 20, City: "Halifax", CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateJob(context.Background(), j))
	return j
}

func TestWithTx_RollbackRestoresState(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	j := seedJob(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.SetJobStatus(ctx, j.ID, models.JobStatusAssigned))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, got.Status)
}

func TestWithTx_PanicRestoresState(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	j := seedJob(t, s)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx store.Tx) error {
			_ = tx.SetJobStatus(ctx, j.ID, models.JobStatusCancelled)
			panic("kaboom")
		})
	})

	got, err := s.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, got.Status)
}

func TestCreateBid_UniquePerJobAndWorker(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	j := seedJob(t, s)
	worker := uuid.New()

	bid := func() *models.Bid {
		return &models.Bid{ID: uuid.New(), JobID: j.ID, WorkerID: worker, Amount: 15, Status: models.BidStatusPending}
	}
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error { return tx.CreateBid(ctx, bid()) }))
	err := s.WithTx(ctx, func(tx store.Tx) error { return tx.CreateBid(ctx, bid()) })
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestSetBidStatus_SingleAcceptedPerJob(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	j := seedJob(t, s)
	a := &models.Bid{ID: uuid.New(), JobID: j.ID, WorkerID: uuid.New(), Status: models.BidStatusPending}
	b := &models.Bid{ID: uuid.New(), JobID: j.ID, WorkerID: uuid.New(), Status: models.BidStatusPending}

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateBid(ctx, a))
		require.NoError(t, tx.CreateBid(ctx, b))
		require.NoError(t, tx.SetBidStatus(ctx, a.ID, models.BidStatusAccepted))
		return tx.SetBidStatus(ctx, b.ID, models.BidStatusAccepted)
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestListJobs_FilterAndPaginate(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		seedJob(t, s)
	}

	jobs, total, err := s.ListJobs(ctx, store.JobFilter{City: "halifax", Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, jobs, 1)

	jobs, total, err = s.ListJobs(ctx, store.JobFilter{City: "Toronto"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, jobs)
}

func TestWorkerStats(t *testing.T) {
	s := memstore.New()
	worker := uuid.New()
	s.AddReview(models.Review{ID: uuid.New(), RevieweeID: worker, Rating: 3})
	s.AddReview(models.Review{ID: uuid.New(), RevieweeID: worker, Rating: 5})
	s.AddBooking(models.Booking{ID: uuid.New(), JobID: uuid.New(), WorkerID: worker, Status: models.BookingStatusCompleted})
	s.AddBooking(models.Booking{ID: uuid.New(), JobID: uuid.New(), WorkerID: worker, Status: models.BookingStatusConfirmed})

	st, err := s.GetWorkerStats(context.Background(), worker)
	require.NoError(t, err)
	require.NotNil(t, st.Rating)
	assert.InDelta(t, 4.0, *st.Rating, 0.001)
	assert.Equal(t, 2, st.TotalReviews)
	assert.Equal(t, 1, st.JobsCompleted)
}

func TestWorkerStatsMany(t *testing.T) {
	s := memstore.New()
	rated, fresh := uuid.New(), uuid.New()
	s.AddReview(models.Review{ID: uuid.New(), RevieweeID: rated, Rating: 2})

	got, err := s.GetWorkerStatsMany(context.Background(), []uuid.UUID{rated, fresh})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[rated].Rating)
	assert.Equal(t, 2.0, *got[rated].Rating)
	assert.Nil(t, got[fresh].Rating)
}

func TestJobListing_Counts(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	j := seedJob(t, s)
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: j.CustomerID, FullName: "Robin Owner", Email: "robin@example.com"}))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		for _, status := range []string{models.BidStatusPending, models.BidStatusPending, models.BidStatusRejected} {
			if err := tx.CreateBid(ctx, &models.Bid{
				ID: uuid.New(), JobID: j.ID, WorkerID: uuid.New(), Amount: 15, Status: status,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := s.GetJobListing(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robin Owner", got.CustomerName)
	assert.Equal(t, 3, got.BidsCount)
	assert.Equal(t, 2, got.PendingBids)

	_, err = s.GetJobListing(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
