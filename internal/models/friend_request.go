package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a directed proposal from one user to another. Rows are
// never deleted; accepted and rejected are terminal statuses kept as an
// audit log.
type FriendRequest struct {
	ID          uuid.UUID           `json:"id"`
	FromUserID  uuid.UUID           `json:"from_user_id"`
	ToUserID    uuid.UUID           `json:"to_user_id"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
}

type IncomingRequest struct {
	FriendRequest
	FromDisplayName string `json:"from_display_name"`
}

type SentRequest struct {
	FriendRequest
	ToDisplayName string `json:"to_display_name"`
}
