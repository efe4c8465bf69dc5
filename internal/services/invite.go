package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/rewards"
)

const (
	InviteDefaultMaxUses = 10
	InviteMaxUsesLimit   = 50
	InviteDefaultTTLDays = 30
	InviteTTLDaysLimit   = 90
	// InviteMaxActive caps live links per creator.
	InviteMaxActive = 20
)

// InviteLinkService owns the invite token lifecycle: generation, validation
// and consumption. Consumption locks the link row so the usage cap holds
// under concurrent consumers.
type InviteLinkService struct {
	db          DB
	friendships FriendshipStoreInterface
	users       UserLookup
	classifier  *UserClassifier
	dispatcher  rewards.Dispatcher
}

func NewInviteLinkService(db DB, friendships FriendshipStoreInterface, users UserLookup, classifier *UserClassifier, dispatcher rewards.Dispatcher) *InviteLinkService {
	return &InviteLinkService{
		db:          db,
		friendships: friendships,
		users:       users,
		classifier:  classifier,
		dispatcher:  dispatcher,
	}
}

// ConsumeResult reports a successful consumption. RewardPending is set when
// the friendship committed but reward dispatch failed.
type ConsumeResult struct {
	Creator       models.UserSummary `json:"creator"`
	RewardPending bool               `json:"reward_pending,omitempty"`
}

// GenerateLink allocates a new link for creatorID. Zero maxUses/ttlDays
// select the defaults. The plaintext token is returned exactly once; only
// its hash is stored.
func (s *InviteLinkService) GenerateLink(ctx context.Context, creatorID uuid.UUID, maxUses, ttlDays int) (*models.InviteLink, string, error) {
	if maxUses == 0 {
		maxUses = InviteDefaultMaxUses
	}
	if ttlDays == 0 {
		ttlDays = InviteDefaultTTLDays
	}
	if maxUses < 1 || maxUses > InviteMaxUsesLimit || ttlDays < 1 || ttlDays > InviteTTLDaysLimit {
		return nil, "", ErrInviteParamsOutOfRange
	}

	var active int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM invite_links l
		 WHERE l.created_by = $1
		   AND l.is_active
		   AND l.expires_at > NOW()
		   AND (SELECT COUNT(*) FROM invite_link_uses u WHERE u.link_id = l.id) < l.max_uses`,
		creatorID,
	).Scan(&active)
	if err != nil {
		return nil, "", Transientf("counting active invite links: %w", err)
	}
	if active >= InviteMaxActive {
		return nil, "", ErrInviteLimitReached
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, "", err
	}

	expiresAt := time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)

	link := &models.InviteLink{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO invite_links (created_by, token_hash, expires_at, max_uses)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_by, expires_at, max_uses, is_active, created_at`,
		creatorID, hashInviteToken(token), expiresAt, maxUses,
	).Scan(&link.ID, &link.CreatedBy, &link.ExpiresAt, &link.MaxUses, &link.IsActive, &link.CreatedAt)
	if err != nil {
		return nil, "", Transientf("inserting invite link: %w", err)
	}

	return link, token, nil
}

// ValidateLink is a pure read check, usable standalone to preview a token
// before committing. Consumption re-runs the same checks under a row lock.
func (s *InviteLinkService) ValidateLink(ctx context.Context, token string, consumerID uuid.UUID) (*models.InviteCheck, error) {
	state, err := s.loadLinkState(ctx, s.db, hashInviteToken(token), consumerID, false)
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			return &models.InviteCheck{Valid: false, Reason: ReasonCode(err)}, nil
		}
		return nil, err
	}

	if err := s.checkConsumable(ctx, state, consumerID); err != nil {
		if IsTransient(err) {
			return nil, err
		}
		return &models.InviteCheck{Valid: false, Reason: ReasonCode(err)}, nil
	}

	return &models.InviteCheck{Valid: true}, nil
}

// ConsumeLink appends consumerID to the link's use set and creates the
// friendship with the link's creator, all in one transaction. The FOR UPDATE
// lock serializes racing consumers so the cap is never exceeded. Rewards are
// dispatched after commit, tiered by the consumer's classification at that
// moment.
func (s *InviteLinkService) ConsumeLink(ctx context.Context, token string, consumerID uuid.UUID) (*ConsumeResult, error) {
	consumer, err := s.users.GetByID(ctx, consumerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, Transientf("begin consume transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	state, err := s.loadLinkState(ctx, tx, hashInviteToken(token), consumerID, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkConsumable(ctx, state, consumerID); err != nil {
		return nil, err
	}

	creator, err := s.users.GetByID(ctx, state.link.CreatedBy)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO invite_link_uses (link_id, user_id) VALUES ($1, $2)`,
		state.link.ID, consumerID,
	)
	if err != nil {
		return nil, Transientf("recording link use: %w", err)
	}

	err = s.friendships.AddEdgePairIn(ctx, tx,
		state.link.CreatedBy, consumerID,
		EdgeSnapshot{Name: creator.DisplayName, Email: creator.Email},
		EdgeSnapshot{Name: consumer.DisplayName, Email: consumer.Email},
		models.OriginInviteLink,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, Transientf("commit consume: %w", err)
	}
	committed = true

	tag := rewards.SourceFriendExistingViaLink
	if s.classifier.Classify(consumer) == TierNew {
		tag = rewards.SourceFriendViaLink
	}
	rewarded := dispatchAward(ctx, s.dispatcher, consumerID, tag)
	rewarded = dispatchAward(ctx, s.dispatcher, state.link.CreatedBy, tag) && rewarded

	return &ConsumeResult{
		Creator:       models.UserSummary{ID: creator.ID, DisplayName: creator.DisplayName},
		RewardPending: !rewarded,
	}, nil
}

// ListLinks returns the creator's live links (active, unexpired,
// unexhausted), newest first.
func (s *InviteLinkService) ListLinks(ctx context.Context, creatorID uuid.UUID) ([]models.InviteLink, error) {
	rows, err := s.db.Query(ctx,
		`SELECT l.id, l.created_by, l.expires_at, l.max_uses, l.is_active, l.created_at,
		        (SELECT COUNT(*) FROM invite_link_uses u WHERE u.link_id = l.id) AS use_count
		 FROM invite_links l
		 WHERE l.created_by = $1
		   AND l.is_active
		   AND l.expires_at > NOW()
		   AND (SELECT COUNT(*) FROM invite_link_uses u WHERE u.link_id = l.id) < l.max_uses
		 ORDER BY l.created_at DESC`,
		creatorID,
	)
	if err != nil {
		return nil, Transientf("listing invite links: %w", err)
	}
	defer rows.Close()

	var links []models.InviteLink
	for rows.Next() {
		var link models.InviteLink
		if err := rows.Scan(&link.ID, &link.CreatedBy, &link.ExpiresAt, &link.MaxUses, &link.IsActive, &link.CreatedAt, &link.UseCount); err != nil {
			return nil, Transientf("scanning invite link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, Transientf("listing invite links: %w", err)
	}

	if links == nil {
		links = []models.InviteLink{}
	}
	return links, nil
}

// DeactivateLink is the creator's explicit kill switch for a link.
func (s *InviteLinkService) DeactivateLink(ctx context.Context, creatorID, linkID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE invite_links
		 SET is_active = false
		 WHERE id = $1 AND created_by = $2 AND is_active`,
		linkID, creatorID,
	)
	if err != nil {
		return Transientf("deactivating invite link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// linkState is everything checkConsumable needs, read either plainly
// (ValidateLink) or under a row lock (ConsumeLink).
type linkState struct {
	link           models.InviteLink
	usedByConsumer bool
}

func (s *InviteLinkService) loadLinkState(ctx context.Context, q DBConn, tokenHash string, consumerID uuid.UUID, forUpdate bool) (*linkState, error) {
	query := `SELECT id, created_by, expires_at, max_uses, is_active, created_at
		 FROM invite_links WHERE token_hash = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	state := &linkState{}
	err := q.QueryRow(ctx, query, tokenHash).Scan(
		&state.link.ID, &state.link.CreatedBy, &state.link.ExpiresAt,
		&state.link.MaxUses, &state.link.IsActive, &state.link.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, Transientf("loading invite link: %w", err)
	}

	err = q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(bool_or(user_id = $2), false)
		 FROM invite_link_uses WHERE link_id = $1`,
		state.link.ID, consumerID,
	).Scan(&state.link.UseCount, &state.usedByConsumer)
	if err != nil {
		return nil, Transientf("counting link uses: %w", err)
	}

	return state, nil
}

// checkConsumable runs every consumption precondition in a fixed order. It
// returns a sentinel error naming the first violated rule, or nil when the
// link is consumable by consumerID.
func (s *InviteLinkService) checkConsumable(ctx context.Context, state *linkState, consumerID uuid.UUID) error {
	link := state.link
	switch {
	case link.CreatedBy == consumerID:
		return ErrCannotInviteSelf
	case !link.IsActive:
		return ErrInviteInactive
	case !time.Now().Before(link.ExpiresAt):
		return ErrInviteExpired
	case state.usedByConsumer:
		return ErrInviteAlreadyUsed
	case link.UseCount >= link.MaxUses:
		return ErrInviteExhausted
	}

	alreadyFriends, err := s.friendships.Exists(ctx, link.CreatedBy, consumerID)
	if err != nil {
		return err
	}
	if alreadyFriends {
		return ErrAlreadyFriends
	}
	return nil
}

func generateInviteToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func hashInviteToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
