package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/services"
)

type mockFriendRequestManager struct {
	SendRequestFunc         func(ctx context.Context, fromID, toID uuid.UUID) (*models.FriendRequest, error)
	AcceptRequestFunc       func(ctx context.Context, requestID, actingUserID uuid.UUID) (*services.AcceptResult, error)
	RejectRequestFunc       func(ctx context.Context, requestID, actingUserID uuid.UUID) error
	RemoveFriendFunc        func(ctx context.Context, userID, friendID uuid.UUID) error
	ListFriendsFunc         func(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error)
	ListPendingRequestsFunc func(ctx context.Context, userID uuid.UUID) ([]models.IncomingRequest, error)
	ListSentRequestsFunc    func(ctx context.Context, userID uuid.UUID) ([]models.SentRequest, error)
}

func (m *mockFriendRequestManager) SendRequest(ctx context.Context, fromID, toID uuid.UUID) (*models.FriendRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, fromID, toID)
	}
	return &models.FriendRequest{}, nil
}

func (m *mockFriendRequestManager) AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID) (*services.AcceptResult, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, requestID, actingUserID)
	}
	return &services.AcceptResult{Request: &models.FriendRequest{}}, nil
}

func (m *mockFriendRequestManager) RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, requestID, actingUserID)
	}
	return nil
}

func (m *mockFriendRequestManager) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if m.RemoveFriendFunc != nil {
		return m.RemoveFriendFunc(ctx, userID, friendID)
	}
	return nil
}

func (m *mockFriendRequestManager) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID)
	}
	return []models.FriendshipEdge{}, nil
}

func (m *mockFriendRequestManager) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingRequest, error) {
	if m.ListPendingRequestsFunc != nil {
		return m.ListPendingRequestsFunc(ctx, userID)
	}
	return []models.IncomingRequest{}, nil
}

func (m *mockFriendRequestManager) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.SentRequest, error) {
	if m.ListSentRequestsFunc != nil {
		return m.ListSentRequestsFunc(ctx, userID)
	}
	return []models.SentRequest{}, nil
}

type mockInviteLinkService struct {
	GenerateLinkFunc   func(ctx context.Context, creatorID uuid.UUID, maxUses, ttlDays int) (*models.InviteLink, string, error)
	ValidateLinkFunc   func(ctx context.Context, token string, consumerID uuid.UUID) (*models.InviteCheck, error)
	ConsumeLinkFunc    func(ctx context.Context, token string, consumerID uuid.UUID) (*services.ConsumeResult, error)
	ListLinksFunc      func(ctx context.Context, creatorID uuid.UUID) ([]models.InviteLink, error)
	DeactivateLinkFunc func(ctx context.Context, creatorID, linkID uuid.UUID) error
}

func (m *mockInviteLinkService) GenerateLink(ctx context.Context, creatorID uuid.UUID, maxUses, ttlDays int) (*models.InviteLink, string, error) {
	if m.GenerateLinkFunc != nil {
		return m.GenerateLinkFunc(ctx, creatorID, maxUses, ttlDays)
	}
	return &models.InviteLink{}, "token", nil
}

func (m *mockInviteLinkService) ValidateLink(ctx context.Context, token string, consumerID uuid.UUID) (*models.InviteCheck, error) {
	if m.ValidateLinkFunc != nil {
		return m.ValidateLinkFunc(ctx, token, consumerID)
	}
	return &models.InviteCheck{Valid: true}, nil
}

func (m *mockInviteLinkService) ConsumeLink(ctx context.Context, token string, consumerID uuid.UUID) (*services.ConsumeResult, error) {
	if m.ConsumeLinkFunc != nil {
		return m.ConsumeLinkFunc(ctx, token, consumerID)
	}
	return &services.ConsumeResult{}, nil
}

func (m *mockInviteLinkService) ListLinks(ctx context.Context, creatorID uuid.UUID) ([]models.InviteLink, error) {
	if m.ListLinksFunc != nil {
		return m.ListLinksFunc(ctx, creatorID)
	}
	return []models.InviteLink{}, nil
}

func (m *mockInviteLinkService) DeactivateLink(ctx context.Context, creatorID, linkID uuid.UUID) error {
	if m.DeactivateLinkFunc != nil {
		return m.DeactivateLinkFunc(ctx, creatorID, linkID)
	}
	return nil
}

type mockEmailService struct {
	SendInviteEmailFunc func(ctx context.Context, toEmail, inviterName, inviteURL string) error
}

func (m *mockEmailService) SendInviteEmail(ctx context.Context, toEmail, inviterName, inviteURL string) error {
	if m.SendInviteEmailFunc != nil {
		return m.SendInviteEmailFunc(ctx, toEmail, inviterName, inviteURL)
	}
	return nil
}
