package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// ValidBidStatus reports whether s is a known bid status.
func ValidBidStatus(s string) bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected:
		return true
	}
	return false
}

// Bid is a worker's offer on a job. A worker holds at most one bid per job.
// Accepted and rejected are terminal; a pending bid may also be withdrawn,
// which deletes it.
type Bid struct {
	ID                uuid.UUID `db:"id"                 json:"id"`
	JobID             uuid.UUID `db:"job_id"             json:"job_id"`
	WorkerID          uuid.UUID `db:"worker_id"          json:"worker_id"`
	Amount            float64   `db:"amount"             json:"amount"`
	Proposal          string    `db:"proposal"           json:"proposal"`
	EstimatedDuration *string   `db:"estimated_duration" json:"estimated_duration,omitempty"`
	Status            string    `db:"status"             json:"status"`
	CreatedAt         time.Time `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"         json:"updated_at"`
}

// JobBid is a bid as seen by the job owner.
type JobBid struct {
	Bid
	WorkerName  string   `json:"worker_name"`
	WorkerEmail string   `json:"worker_email"`
	WorkerPhone string   `json:"worker_phone"`
	Bio         *string  `json:"bio,omitempty"`
	HourlyRate  *float64 `json:"hourly_rate,omitempty"`
	WorkerStats
}

// WorkerBid is a bid as seen by the worker who placed it.
type WorkerBid struct {
	Bid
	JobTitle       string   `json:"job_title"`
	JobDescription string   `json:"job_description"`
	BudgetMin      float64  `json:"budget_min"`
	BudgetMax      float64  `json:"budget_max"`
	Location       string   `json:"location"`
	City           string   `json:"city"`
	Province       string   `json:"province"`
	JobStatus      string   `json:"job_status"`
	JobImages      []string `json:"job_images"`
	CustomerName   string   `json:"customer_name"`
	CustomerPhone  *string  `json:"customer_phone,omitempty"`
}

// BidDetail is the single-bid view shared by the job owner and the bidder.
type BidDetail struct {
	Bid
	JobTitle       string    `json:"job_title"`
	JobDescription string    `json:"job_description"`
	CustomerID     uuid.UUID `json:"customer_id"`
	WorkerName     string    `json:"worker_name"`
	Rating         *float64  `json:"rating"`
	TotalReviews   int       `json:"total_reviews"`
}
