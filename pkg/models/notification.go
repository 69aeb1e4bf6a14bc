package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationNewBid      = "new_bid"
	NotificationBidAccepted = "bid_accepted"
	NotificationBidRejected = "bid_rejected"
)

// Notification is append-only. RelatedID points at the bid or booking that
// produced it.
type Notification struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Type      string    `db:"type"       json:"type"`
	Title     string    `db:"title"      json:"title"`
	Message   string    `db:"message"    json:"message"`
	RelatedID uuid.UUID `db:"related_id" json:"related_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
