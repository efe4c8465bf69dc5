package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteLink is a shareable, time- and usage-bounded credential. Only a
// sha256 hash of the token is stored; the plaintext token is returned once
// at creation and carried in the shareable URL.
type InviteLink struct {
	ID        uuid.UUID `json:"id"`
	CreatedBy uuid.UUID `json:"created_by"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxUses   int       `json:"max_uses"`
	UseCount  int       `json:"use_count"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteCheck is the result of a read-only link validation. Reason is a
// stable code the client can render ("link_expired", "self_invite", ...);
// it is empty when Valid is true.
type InviteCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
