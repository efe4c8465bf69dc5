package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/models"
)

// UserLookup is the read-only view of platform users this core needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// FriendshipStoreInterface defines the contract for the symmetric edge store.
type FriendshipStoreInterface interface {
	AddEdgePair(ctx context.Context, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error
	AddEdgePairIn(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error
	RemoveEdgePair(ctx context.Context, a, b uuid.UUID) error
	Exists(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error)
}

// FriendRequestManagerInterface defines the contract for the request
// lifecycle used by handlers.
type FriendRequestManagerInterface interface {
	SendRequest(ctx context.Context, fromID, toID uuid.UUID) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID) (*AcceptResult, error)
	RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error
	RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingRequest, error)
	ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.SentRequest, error)
}

// InviteLinkServiceInterface defines the contract for invite link operations
// used by handlers.
type InviteLinkServiceInterface interface {
	GenerateLink(ctx context.Context, creatorID uuid.UUID, maxUses, ttlDays int) (*models.InviteLink, string, error)
	ValidateLink(ctx context.Context, token string, consumerID uuid.UUID) (*models.InviteCheck, error)
	ConsumeLink(ctx context.Context, token string, consumerID uuid.UUID) (*ConsumeResult, error)
	ListLinks(ctx context.Context, creatorID uuid.UUID) ([]models.InviteLink, error)
	DeactivateLink(ctx context.Context, creatorID, linkID uuid.UUID) error
}

// EmailServiceInterface defines the contract for outbound invite email.
type EmailServiceInterface interface {
	SendInviteEmail(ctx context.Context, toEmail, inviterName, inviteURL string) error
}
