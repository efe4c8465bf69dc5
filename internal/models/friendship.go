package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipOrigin string

const (
	OriginRequest    FriendshipOrigin = "request"
	OriginInviteLink FriendshipOrigin = "invite_link"
)

// FriendshipEdge is one half of a symmetric friendship. A friendship is
// exactly two edges, (A→B) and (B→A), written together. FriendName and
// FriendEmail are point-in-time snapshots taken when the edge was created,
// not live references.
type FriendshipEdge struct {
	OwnerID     uuid.UUID        `json:"owner_id"`
	FriendID    uuid.UUID        `json:"friend_id"`
	FriendName  string           `json:"friend_name"`
	FriendEmail string           `json:"friend_email"`
	Origin      FriendshipOrigin `json:"origin"`
	CreatedAt   time.Time        `json:"created_at"`
}
