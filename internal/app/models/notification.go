package models

import "time"

// NotificationKind classifies a notification
type NotificationKind string

const (
	NotificationRequestSubmitted NotificationKind = "REQUEST_SUBMITTED"
	NotificationRequestResolved  NotificationKind = "REQUEST_RESOLVED"
)

// Notification is a message addressed to a single user
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"userId" db:"user_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	RequestID *string          `json:"requestId,omitempty" db:"request_id"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}
