package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. Reads go through it directly; every
// multi-row mutation goes through WithTx.
type Store interface {
	Ping(ctx context.Context) error

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back on any error or panic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	UpsertWorkerProfile(ctx context.Context, profile *models.WorkerProfile) (*models.WorkerProfile, error)
	GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error)
	GetWorkerStats(ctx context.Context, workerID uuid.UUID) (*models.WorkerStats, error)
	// GetWorkerStatsMany returns aggregates for every id in one round trip.
	// Workers with no history map to zero-valued stats.
	GetWorkerStatsMany(ctx context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]*models.WorkerStats, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetJobListing(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.JobListing, int, error)

	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetBidDetail(ctx context.Context, id uuid.UUID) (*models.BidDetail, error)
	ListJobBids(ctx context.Context, jobID uuid.UUID) ([]*models.JobBid, error)
	ListWorkerBids(ctx context.Context, filter BidFilter) ([]*models.WorkerBid, error)
}

// LockMode selects the row lock LockJob takes.
type LockMode int

const (
	// LockShare blocks concurrent LockUpdate holders but not other sharers.
	LockShare LockMode = iota
	// LockUpdate serializes every writer of the job.
	LockUpdate
)

// Tx is the transactional handle passed to WithTx callbacks.
type Tx interface {
	LockJob(ctx context.Context, id uuid.UUID, mode LockMode) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	SetJobStatus(ctx context.Context, id uuid.UUID, status string) error

	// LockBid reads a bid and holds its row lock until the transaction ends.
	LockBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindBid(ctx context.Context, jobID, workerID uuid.UUID) (*models.Bid, error)
	CountBids(ctx context.Context, jobID uuid.UUID, status string) (int, error)
	CreateBid(ctx context.Context, bid *models.Bid) error
	SetBidStatus(ctx context.Context, id uuid.UUID, status string) error
	// RejectPendingBids moves every pending bid on the job except exceptID to
	// rejected and returns exactly the bids it changed.
	RejectPendingBids(ctx context.Context, jobID, exceptID uuid.UUID) ([]*models.Bid, error)
	DeleteBid(ctx context.Context, id uuid.UUID) error

	HasWorkerProfile(ctx context.Context, userID uuid.UUID) (bool, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	HasActiveBooking(ctx context.Context, jobID uuid.UUID) (bool, error)

	// CreateNotification must not poison the surrounding transaction on
	// failure: a failed write is undone on its own and reported.
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// JobFilter enumerates the optional predicates of a job listing.
type JobFilter struct {
	CustomerID uuid.UUID
	Status     string
	City       string
	Province   string
	MinBudget  *float64
	MaxBudget  *float64
	Page       int
	Limit      int
}

// BidFilter enumerates the optional predicates of a worker's bid listing.
type BidFilter struct {
	WorkerID uuid.UUID
	Status   string
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Normalize clamps pagination to sane bounds and returns limit and offset.
func (f JobFilter) Normalize() (page, limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page = f.Page
	if page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}
