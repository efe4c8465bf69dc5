package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kindred-wellness/kindred/internal/logging"
	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/rewards"
)

// FriendRequestManager owns the request lifecycle. Requests move
// pending → accepted | rejected; both end states are terminal and rows are
// never deleted.
type FriendRequestManager struct {
	db          DB
	friendships FriendshipStoreInterface
	users       UserLookup
	classifier  *UserClassifier
	dispatcher  rewards.Dispatcher
}

func NewFriendRequestManager(db DB, friendships FriendshipStoreInterface, users UserLookup, classifier *UserClassifier, dispatcher rewards.Dispatcher) *FriendRequestManager {
	return &FriendRequestManager{
		db:          db,
		friendships: friendships,
		users:       users,
		classifier:  classifier,
		dispatcher:  dispatcher,
	}
}

// AcceptResult reports an accepted request. RewardPending is set when the
// friendship committed but reward dispatch failed; the graph change is never
// rolled back for a dispatch failure.
type AcceptResult struct {
	Request       *models.FriendRequest `json:"request"`
	RewardPending bool                  `json:"reward_pending,omitempty"`
}

// SendRequest creates a pending request from fromID to toID. All checks run
// before the insert; nothing is written on a validation or conflict failure.
func (m *FriendRequestManager) SendRequest(ctx context.Context, fromID, toID uuid.UUID) (*models.FriendRequest, error) {
	if fromID == toID {
		return nil, ErrCannotFriendSelf
	}

	alreadyFriends, err := m.friendships.Exists(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if alreadyFriends {
		return nil, ErrAlreadyFriends
	}

	var pending bool
	err = m.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE from_user_id = $1 AND to_user_id = $2 AND status = 'pending'
		)`,
		fromID, toID,
	).Scan(&pending)
	if err != nil {
		return nil, Transientf("checking pending request: %w", err)
	}
	if pending {
		return nil, ErrRequestPending
	}

	request := &models.FriendRequest{}
	err = m.db.QueryRow(ctx,
		`INSERT INTO friend_requests (from_user_id, to_user_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING id, from_user_id, to_user_id, status, created_at, responded_at`,
		fromID, toID,
	).Scan(&request.ID, &request.FromUserID, &request.ToUserID, &request.Status, &request.CreatedAt, &request.RespondedAt)
	if err != nil {
		return nil, Transientf("creating friend request: %w", err)
	}

	return request, nil
}

// AcceptRequest transitions a pending request to accepted and creates both
// friendship edges in the same transaction. Rewards are dispatched after
// commit; both parties are classified at that moment.
func (m *FriendRequestManager) AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID) (*AcceptResult, error) {
	request, err := m.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Only the recipient can accept
	if request.ToUserID != actingUserID {
		return nil, ErrNotRequestRecipient
	}
	if request.Status != models.FriendRequestStatusPending {
		return nil, ErrRequestNotPending
	}

	fromUser, err := m.users.GetByID(ctx, request.FromUserID)
	if err != nil {
		return nil, err
	}
	toUser, err := m.users.GetByID(ctx, request.ToUserID)
	if err != nil {
		return nil, err
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, Transientf("begin accept transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// The status guard in the UPDATE closes the race between two concurrent
	// accepts of the same request.
	tag, err := tx.Exec(ctx,
		`UPDATE friend_requests
		 SET status = 'accepted', responded_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		requestID,
	)
	if err != nil {
		return nil, Transientf("accepting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRequestNotPending
	}

	err = m.friendships.AddEdgePairIn(ctx, tx,
		request.FromUserID, request.ToUserID,
		EdgeSnapshot{Name: fromUser.DisplayName, Email: fromUser.Email},
		EdgeSnapshot{Name: toUser.DisplayName, Email: toUser.Email},
		models.OriginRequest,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, Transientf("commit accept: %w", err)
	}
	committed = true

	request.Status = models.FriendRequestStatusAccepted

	// The sender converted a New user if the accepting party is still New.
	senderTag := rewards.SourceFriendAdded
	if m.classifier.Classify(toUser) == TierNew {
		senderTag = rewards.SourceFriendInvited
	}
	rewarded := dispatchAward(ctx, m.dispatcher, request.FromUserID, senderTag)
	rewarded = dispatchAward(ctx, m.dispatcher, request.ToUserID, rewards.SourceFriendAdded) && rewarded

	return &AcceptResult{Request: request, RewardPending: !rewarded}, nil
}

// RejectRequest transitions a pending request to rejected. The row is kept
// as an audit record; no edges are touched.
func (m *FriendRequestManager) RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	request, err := m.getByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.ToUserID != actingUserID {
		return ErrNotRequestRecipient
	}
	if request.Status != models.FriendRequestStatusPending {
		return ErrRequestNotPending
	}

	tag, err := m.db.Exec(ctx,
		`UPDATE friend_requests
		 SET status = 'rejected', responded_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		requestID,
	)
	if err != nil {
		return Transientf("rejecting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotPending
	}

	return nil
}

// RemoveFriend removes both edges of the friendship. Idempotent.
func (m *FriendRequestManager) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	return m.friendships.RemoveEdgePair(ctx, userID, friendID)
}

func (m *FriendRequestManager) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error) {
	return m.friendships.ListFriends(ctx, userID)
}

// ListPendingRequests returns requests awaiting the user's response, newest
// first.
func (m *FriendRequestManager) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingRequest, error) {
	rows, err := m.db.Query(ctx,
		`SELECT r.id, r.from_user_id, r.to_user_id, r.status, r.created_at, r.responded_at, u.display_name
		 FROM friend_requests r
		 JOIN users u ON r.from_user_id = u.id
		 WHERE r.to_user_id = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, Transientf("listing pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.IncomingRequest
	for rows.Next() {
		var r models.IncomingRequest
		if err := rows.Scan(&r.ID, &r.FromUserID, &r.ToUserID, &r.Status, &r.CreatedAt, &r.RespondedAt, &r.FromDisplayName); err != nil {
			return nil, Transientf("scanning pending request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Transientf("listing pending requests: %w", err)
	}

	if requests == nil {
		requests = []models.IncomingRequest{}
	}

	return requests, nil
}

// ListSentRequests returns the user's outgoing pending requests, newest
// first.
func (m *FriendRequestManager) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.SentRequest, error) {
	rows, err := m.db.Query(ctx,
		`SELECT r.id, r.from_user_id, r.to_user_id, r.status, r.created_at, r.responded_at, u.display_name
		 FROM friend_requests r
		 JOIN users u ON r.to_user_id = u.id
		 WHERE r.from_user_id = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, Transientf("listing sent requests: %w", err)
	}
	defer rows.Close()

	var requests []models.SentRequest
	for rows.Next() {
		var r models.SentRequest
		if err := rows.Scan(&r.ID, &r.FromUserID, &r.ToUserID, &r.Status, &r.CreatedAt, &r.RespondedAt, &r.ToDisplayName); err != nil {
			return nil, Transientf("scanning sent request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Transientf("listing sent requests: %w", err)
	}

	if requests == nil {
		requests = []models.SentRequest{}
	}

	return requests, nil
}

// dispatchAward delivers one XP award. Failures are logged and reported as
// false; they never unwind a committed graph change.
func dispatchAward(ctx context.Context, d rewards.Dispatcher, userID uuid.UUID, source rewards.SourceTag) bool {
	award, err := d.AwardXP(ctx, userID, source)
	if err != nil || award == nil || !award.Success {
		fields := map[string]interface{}{
			"user_id": userID.String(),
			"source":  string(source),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		logging.Warn("Reward dispatch failed; friendship kept", fields)
		return false
	}
	return true
}

func (m *FriendRequestManager) getByID(ctx context.Context, requestID uuid.UUID) (*models.FriendRequest, error) {
	request := &models.FriendRequest{}
	err := m.db.QueryRow(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at, responded_at
		 FROM friend_requests WHERE id = $1`,
		requestID,
	).Scan(&request.ID, &request.FromUserID, &request.ToUserID, &request.Status, &request.CreatedAt, &request.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, Transientf("getting friend request: %w", err)
	}
	return request, nil
}
