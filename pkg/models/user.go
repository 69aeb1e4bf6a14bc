package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleWorker   = "worker"
	RoleAdmin    = "admin"
)

// User is a marketplace account. Customers post jobs, workers bid on them.
type User struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	FullName   string    `db:"full_name"   json:"full_name"`
	Email      string    `db:"email"       json:"email"`
	Phone      string    `db:"phone"       json:"phone"`
	Role       string    `db:"role"        json:"role"`
	IsVerified bool      `db:"is_verified" json:"is_verified"`
	IsActive   bool      `db:"is_active"   json:"is_active"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

// Principal is the authenticated actor of a request.
type Principal struct {
	ID       uuid.UUID
	Role     string
	Verified bool
	Active   bool
}

func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, Verified: u.IsVerified, Active: u.IsActive}
}

// WorkerProfile must exist before a worker may bid.
type WorkerProfile struct {
	UserID     uuid.UUID `db:"user_id"     json:"user_id"`
	Bio        string    `db:"bio"         json:"bio"`
	HourlyRate *float64  `db:"hourly_rate" json:"hourly_rate,omitempty"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

// WorkerStats aggregates reviews and completed bookings for a worker.
// Rating is nil when the worker has no reviews.
type WorkerStats struct {
	Rating        *float64 `json:"rating"`
	TotalReviews  int      `json:"total_reviews"`
	JobsCompleted int      `json:"total_jobs_completed"`
}
