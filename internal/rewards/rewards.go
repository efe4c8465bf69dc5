package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/config"
	"github.com/kindred-wellness/kindred/internal/logging"
)

// SourceTag identifies why XP is being awarded. The rewards platform owns
// the amount attached to each tag.
type SourceTag string

const (
	SourceFriendAdded           SourceTag = "FRIEND_ADDED"
	SourceFriendInvited         SourceTag = "FRIEND_INVITED"
	SourceFriendViaLink         SourceTag = "FRIEND_VIA_LINK"
	SourceFriendExistingViaLink SourceTag = "FRIEND_EXISTING_VIA_LINK"
)

// Award is the rewards platform's acknowledgement of a dispatch.
type Award struct {
	Success       bool `json:"success"`
	AmountAwarded int  `json:"amount_awarded"`
}

// Dispatcher delivers XP awards to the rewards platform. Implementations
// must not retry; retry policy belongs to the caller, and a committed
// social-graph change is never rolled back because dispatch failed.
type Dispatcher interface {
	AwardXP(ctx context.Context, userID uuid.UUID, source SourceTag) (*Award, error)
}

// New selects a dispatcher from configuration.
func New(cfg *config.RewardsConfig) Dispatcher {
	switch cfg.Provider {
	case "http":
		return NewHTTPDispatcher(cfg.Endpoint, cfg.APIKey, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	default:
		return NewConsoleDispatcher()
	}
}

// ConsoleDispatcher logs awards instead of delivering them. Used in
// development and as the fallback provider.
type ConsoleDispatcher struct {
	logger *logging.Logger
}

func NewConsoleDispatcher() *ConsoleDispatcher {
	return &ConsoleDispatcher{logger: logging.Default}
}

func (d *ConsoleDispatcher) AwardXP(ctx context.Context, userID uuid.UUID, source SourceTag) (*Award, error) {
	d.logger.Info("XP award (console provider)", map[string]interface{}{
		"user_id": userID.String(),
		"source":  string(source),
	})
	return &Award{Success: true, AmountAwarded: 0}, nil
}

// HTTPDispatcher posts awards to the rewards platform.
type HTTPDispatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPDispatcher(endpoint, apiKey string, timeout time.Duration) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPDispatcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type awardRequest struct {
	UserID    string `json:"user_id"`
	SourceTag string `json:"source_tag"`
}

func (d *HTTPDispatcher) AwardXP(ctx context.Context, userID uuid.UUID, source SourceTag) (*Award, error) {
	body, err := json.Marshal(awardRequest{UserID: userID.String(), SourceTag: string(source)})
	if err != nil {
		return nil, fmt.Errorf("encoding award request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building award request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting award: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rewards platform returned status %d", resp.StatusCode)
	}

	award := &Award{}
	if err := json.NewDecoder(resp.Body).Decode(award); err != nil {
		return nil, fmt.Errorf("decoding award response: %w", err)
	}
	return award, nil
}
