package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusOpen      = "open"
	JobStatusAssigned  = "assigned"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// ValidJobStatus reports whether s names a job status.
func ValidJobStatus(s string) bool {
	switch s {
	case JobStatusOpen, JobStatusAssigned, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// Job is posted by a customer and stays open for bidding until a bid is
// accepted, at which point it moves to assigned.
type Job struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	CustomerID  uuid.UUID `db:"customer_id" json:"customer_id"`
	Title       string    `db:"title"       json:"title"`
	Description string    `db:"description" json:"description"`
	BudgetMin   float64   `db:"budget_min"  json:"budget_min"`
	BudgetMax   float64   `db:"budget_max"  json:"budget_max"`
	Location    string    `db:"location"    json:"location"`
	City        string    `db:"city"        json:"city"`
	Province    string    `db:"province"    json:"province"`
	Images      []string  `db:"images"      json:"images"`
	Status      string    `db:"status"      json:"status"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// JobListing is a job on the read paths, carrying its poster's name and bid
// counts.
type JobListing struct {
	Job
	CustomerName string `json:"customer_name"`
	BidsCount    int    `json:"bids_count"`
	PendingBids  int    `json:"pending_bids"`
}
