package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/models"
)

// EdgeSnapshot is the point-in-time name/email captured on an edge when the
// friendship is created.
type EdgeSnapshot struct {
	Name  string
	Email string
}

// FriendshipStore owns the symmetric friendship edge collection. A
// friendship is exactly two directional edges written in one transaction, so
// readers never observe exists(A,B) != exists(B,A).
type FriendshipStore struct {
	db DB
}

func NewFriendshipStore(db DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

// AddEdgePair creates both directional edges as a single logical unit.
// Calling it for an already-connected pair is a no-op. snapA describes user
// a and is stored on b's edge; snapB describes user b and is stored on a's
// edge.
func (s *FriendshipStore) AddEdgePair(ctx context.Context, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Transientf("begin edge pair transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := s.AddEdgePairIn(ctx, tx, a, b, snapA, snapB, origin); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transientf("commit edge pair: %w", err)
	}
	committed = true
	return nil
}

// AddEdgePairIn writes both edges on an already-open connection or
// transaction. InviteLinkService uses this to keep the edges in the same
// transaction as the link consumption record.
func (s *FriendshipStore) AddEdgePairIn(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
	_, err := q.Exec(ctx,
		`INSERT INTO friendship_edges (owner_id, friend_id, friend_name, friend_email, origin)
		 VALUES ($1, $2, $3, $4, $5), ($2, $1, $6, $7, $5)
		 ON CONFLICT (owner_id, friend_id) DO NOTHING`,
		a, b, snapB.Name, snapB.Email, origin, snapA.Name, snapA.Email,
	)
	if err != nil {
		return Transientf("inserting friendship edges: %w", err)
	}
	return nil
}

// RemoveEdgePair deletes both directional edges. Removing a pair that is not
// connected is a no-op, not an error.
func (s *FriendshipStore) RemoveEdgePair(ctx context.Context, a, b uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM friendship_edges
		 WHERE (owner_id = $1 AND friend_id = $2)
		    OR (owner_id = $2 AND friend_id = $1)`,
		a, b,
	)
	if err != nil {
		return Transientf("removing friendship edges: %w", err)
	}
	return nil
}

// Exists reports whether a and b are friends. The check is symmetric.
func (s *FriendshipStore) Exists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendship_edges
			WHERE (owner_id = $1 AND friend_id = $2)
			   OR (owner_id = $2 AND friend_id = $1)
		)`,
		a, b,
	).Scan(&exists)
	if err != nil {
		return false, Transientf("checking friendship existence: %w", err)
	}
	return exists, nil
}

// ListFriends returns the user's edges, newest first.
func (s *FriendshipStore) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT owner_id, friend_id, friend_name, friend_email, origin, created_at
		 FROM friendship_edges
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, Transientf("listing friends: %w", err)
	}
	defer rows.Close()

	var friends []models.FriendshipEdge
	for rows.Next() {
		var e models.FriendshipEdge
		if err := rows.Scan(&e.OwnerID, &e.FriendID, &e.FriendName, &e.FriendEmail, &e.Origin, &e.CreatedAt); err != nil {
			return nil, Transientf("scanning friendship edge: %w", err)
		}
		friends = append(friends, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Transientf("listing friends: %w", err)
	}

	if friends == nil {
		friends = []models.FriendshipEdge{}
	}

	return friends, nil
}
