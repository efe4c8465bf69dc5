package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/rewards"
)

func newUser(id uuid.UUID, name string, moodCount, xp int) *models.User {
	return &models.User{
		ID:             id,
		Email:          name + "@example.com",
		DisplayName:    name,
		MoodEntryCount: moodCount,
		TotalXP:        xp,
	}
}

func TestFriendRequestManager_SendRequest_Success(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "EXISTS") {
				return rowFromValues(false)
			}
			if strings.Contains(sql, "INSERT INTO friend_requests") {
				return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
			}
			t.Fatalf("unexpected sql: %q", sql)
			return rowFromValues()
		},
	}
	friendships := &stubFriendshipStore{}

	mgr := NewFriendRequestManager(db, friendships, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	request, err := mgr.SendRequest(context.Background(), fromID, toID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.ID != requestID || request.Status != models.FriendRequestStatusPending {
		t.Fatalf("unexpected request: %+v", request)
	}
	if request.RespondedAt != nil {
		t.Fatal("expected nil responded_at on a fresh request")
	}
}

func TestFriendRequestManager_SendRequest_Self(t *testing.T) {
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			t.Fatal("expected no database calls for self request")
			return rowFromValues()
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	_, err := mgr.SendRequest(context.Background(), userID, userID)
	if !errors.Is(err, ErrCannotFriendSelf) {
		t.Fatalf("expected ErrCannotFriendSelf, got %v", err)
	}
}

func TestFriendRequestManager_SendRequest_AlreadyFriends(t *testing.T) {
	friendships := &stubFriendshipStore{
		ExistsFunc: func(ctx context.Context, a, b uuid.UUID) (bool, error) {
			return true, nil
		},
	}

	mgr := NewFriendRequestManager(&fakeDB{}, friendships, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	_, err := mgr.SendRequest(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}
}

func TestFriendRequestManager_SendRequest_DuplicatePending(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "EXISTS") {
				return rowFromValues(true)
			}
			t.Fatalf("unexpected sql: %q", sql)
			return rowFromValues()
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	_, err := mgr.SendRequest(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}
}

func TestFriendRequestManager_AcceptRequest_Success(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	fromUser := newUser(fromID, "alice", 20, 500)
	toUser := newUser(toID, "bob", 10, 200)

	var edgeOrigin models.FriendshipOrigin
	var edgeSnapA, edgeSnapB EdgeSnapshot
	committed := false
	tx := &fakeTx{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			if !strings.Contains(sql, "status = 'accepted'") || !strings.Contains(sql, "status = 'pending'") {
				t.Fatalf("accept update missing status guard: %q", sql)
			}
			return fakeCommandTag{rowsAffected: 1}, nil
		},
		CommitFunc: func(ctx context.Context) error {
			committed = true
			return nil
		},
	}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
	friendships := &stubFriendshipStore{
		AddEdgePairInFunc: func(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
			if q != tx {
				t.Fatal("expected edges written inside the accept transaction")
			}
			edgeSnapA, edgeSnapB = snapA, snapB
			edgeOrigin = origin
			return nil
		},
	}
	dispatcher := &stubDispatcher{}

	mgr := NewFriendRequestManager(db, friendships, userMap(fromUser, toUser), defaultClassifier(), dispatcher)
	result, err := mgr.AcceptRequest(context.Background(), requestID, toID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !committed {
		t.Fatal("expected commit")
	}
	if result.Request.Status != models.FriendRequestStatusAccepted {
		t.Fatalf("unexpected status: %v", result.Request.Status)
	}
	if result.RewardPending {
		t.Fatal("expected rewards dispatched")
	}
	if edgeOrigin != models.OriginRequest {
		t.Fatalf("unexpected origin: %v", edgeOrigin)
	}
	if edgeSnapA.Name != "alice" || edgeSnapB.Name != "bob" {
		t.Fatalf("unexpected snapshots: %+v %+v", edgeSnapA, edgeSnapB)
	}

	// Both parties established: both get the plain friend-added award.
	if len(dispatcher.Awards) != 2 {
		t.Fatalf("expected 2 awards, got %d", len(dispatcher.Awards))
	}
	if dispatcher.Awards[0].UserID != fromID || dispatcher.Awards[0].Source != rewards.SourceFriendAdded {
		t.Fatalf("unexpected sender award: %+v", dispatcher.Awards[0])
	}
	if dispatcher.Awards[1].UserID != toID || dispatcher.Awards[1].Source != rewards.SourceFriendAdded {
		t.Fatalf("unexpected recipient award: %+v", dispatcher.Awards[1])
	}
}

func TestFriendRequestManager_AcceptRequest_NewAccepterUpgradesSenderAward(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	fromUser := newUser(fromID, "alice", 20, 500)
	toUser := newUser(toID, "bob", 0, 0) // brand new

	tx := &fakeTx{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
	friendships := &stubFriendshipStore{
		AddEdgePairInFunc: func(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
			return nil
		},
	}
	dispatcher := &stubDispatcher{}

	mgr := NewFriendRequestManager(db, friendships, userMap(fromUser, toUser), defaultClassifier(), dispatcher)
	if _, err := mgr.AcceptRequest(context.Background(), requestID, toID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dispatcher.Awards) != 2 {
		t.Fatalf("expected 2 awards, got %d", len(dispatcher.Awards))
	}
	if dispatcher.Awards[0].Source != rewards.SourceFriendInvited {
		t.Fatalf("expected sender FRIEND_INVITED for a new accepter, got %v", dispatcher.Awards[0].Source)
	}
	if dispatcher.Awards[1].Source != rewards.SourceFriendAdded {
		t.Fatalf("expected recipient FRIEND_ADDED, got %v", dispatcher.Awards[1].Source)
	}
}

func TestFriendRequestManager_AcceptRequest_NotRecipient(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	_, err := mgr.AcceptRequest(context.Background(), requestID, fromID)
	if !errors.Is(err, ErrNotRequestRecipient) {
		t.Fatalf("expected ErrNotRequestRecipient, got %v", err)
	}
}

func TestFriendRequestManager_AcceptRequest_NotPending(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusRejected, now, &now)
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	_, err := mgr.AcceptRequest(context.Background(), requestID, toID)
	if !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
}

func TestFriendRequestManager_AcceptRequest_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	_, err := mgr.AcceptRequest(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestFriendRequestManager_AcceptRequest_ConcurrentAcceptLosesRace(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	rolledBack := false
	tx := &fakeTx{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			// Another accept got there first.
			return fakeCommandTag{rowsAffected: 0}, nil
		},
		RollbackFunc: func(ctx context.Context) error {
			rolledBack = true
			return nil
		},
	}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
	friendships := &stubFriendshipStore{
		AddEdgePairInFunc: func(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
			t.Fatal("expected no edges after losing the accept race")
			return nil
		},
	}

	mgr := NewFriendRequestManager(db, friendships, userMap(newUser(fromID, "alice", 5, 50), newUser(toID, "bob", 5, 50)), defaultClassifier(), &stubDispatcher{})
	_, err := mgr.AcceptRequest(context.Background(), requestID, toID)
	if !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
	if !rolledBack {
		t.Fatal("expected rollback")
	}
}

func TestFriendRequestManager_AcceptRequest_RewardFailureKeepsFriendship(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	committed := false
	tx := &fakeTx{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 1}, nil
		},
		CommitFunc: func(ctx context.Context) error {
			committed = true
			return nil
		},
	}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
	friendships := &stubFriendshipStore{
		AddEdgePairInFunc: func(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
			return nil
		},
	}
	dispatcher := &stubDispatcher{Err: errors.New("reward service down")}

	mgr := NewFriendRequestManager(db, friendships, userMap(newUser(fromID, "alice", 5, 50), newUser(toID, "bob", 5, 50)), defaultClassifier(), dispatcher)
	result, err := mgr.AcceptRequest(context.Background(), requestID, toID)
	if err != nil {
		t.Fatalf("expected no error on reward failure, got %v", err)
	}
	if !committed {
		t.Fatal("expected friendship committed despite reward failure")
	}
	if !result.RewardPending {
		t.Fatal("expected RewardPending set")
	}
}

func TestFriendRequestManager_RejectRequest_Success(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	var gotSQL string
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			gotSQL = sql
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	if err := mgr.RejectRequest(context.Background(), requestID, toID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotSQL, "UPDATE friend_requests") || strings.Contains(gotSQL, "DELETE") {
		t.Fatalf("expected rejected row kept, got %q", gotSQL)
	}
}

func TestFriendRequestManager_RejectRequest_NotRecipient(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(requestID, fromID, toID, models.FriendRequestStatusPending, now, nil)
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	if err := mgr.RejectRequest(context.Background(), requestID, fromID); !errors.Is(err, ErrNotRequestRecipient) {
		t.Fatalf("expected ErrNotRequestRecipient, got %v", err)
	}
}

func TestFriendRequestManager_ListPendingRequests(t *testing.T) {
	userID := uuid.New()
	senderID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if !strings.Contains(sql, "JOIN users") {
				t.Fatalf("expected join for display names, got %q", sql)
			}
			return &fakeRows{rows: [][]any{
				{requestID, senderID, userID, models.FriendRequestStatusPending, now, nil, "Alice"},
			}}, nil
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	requests, err := mgr.ListPendingRequests(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if requests[0].FromDisplayName != "Alice" {
		t.Fatalf("unexpected sender name: %q", requests[0].FromDisplayName)
	}
}

func TestFriendRequestManager_ListSentRequests_EmptyNotNil(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{}, nil
		},
	}

	mgr := NewFriendRequestManager(db, &stubFriendshipStore{}, &stubUserLookup{}, defaultClassifier(), &stubDispatcher{})
	requests, err := mgr.ListSentRequests(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests == nil {
		t.Fatal("expected empty slice, got nil")
	}
}
