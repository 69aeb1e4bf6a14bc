package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
)

// Booking is created exactly once per job, when its winning bid is accepted.
type Booking struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	JobID       uuid.UUID `db:"job_id"       json:"job_id"`
	CustomerID  uuid.UUID `db:"customer_id"  json:"customer_id"`
	WorkerID    uuid.UUID `db:"worker_id"    json:"worker_id"`
	AgreedPrice float64   `db:"agreed_price" json:"agreed_price"`
	Status      string    `db:"status"       json:"status"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}

// Review is read-only here; it only feeds worker ratings.
type Review struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	BookingID  uuid.UUID `db:"booking_id"  json:"booking_id"`
	ReviewerID uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID uuid.UUID `db:"reviewee_id" json:"reviewee_id"`
	Rating     int       `db:"rating"      json:"rating"`
	Comment    string    `db:"comment"     json:"comment"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}
