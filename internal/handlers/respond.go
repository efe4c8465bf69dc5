package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kindred-wellness/kindred/internal/services"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, reason string) {
	writeJSON(w, status, ErrorResponse{Error: message, Reason: reason})
}

// writeServiceError maps service errors to HTTP statuses and the stable
// reason codes the client renders messages from.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCannotFriendSelf):
		writeError(w, http.StatusBadRequest, "Cannot send a friend request to yourself", services.ReasonCode(err))
	case errors.Is(err, services.ErrInviteParamsOutOfRange):
		writeError(w, http.StatusBadRequest, "Invite parameters out of range", services.ReasonCode(err))
	case errors.Is(err, services.ErrAlreadyFriends):
		writeError(w, http.StatusConflict, "Already friends", services.ReasonCode(err))
	case errors.Is(err, services.ErrRequestPending):
		writeError(w, http.StatusConflict, "Friend request already pending", services.ReasonCode(err))
	case errors.Is(err, services.ErrRequestNotPending):
		writeError(w, http.StatusConflict, "Friend request already resolved", services.ReasonCode(err))
	case errors.Is(err, services.ErrNotRequestRecipient):
		writeError(w, http.StatusForbidden, "Only the recipient can respond to this request", services.ReasonCode(err))
	case errors.Is(err, services.ErrInviteInactive):
		writeError(w, http.StatusConflict, "Invite link has been deactivated", services.ReasonCode(err))
	case errors.Is(err, services.ErrInviteExpired):
		writeError(w, http.StatusConflict, "Invite link has expired", services.ReasonCode(err))
	case errors.Is(err, services.ErrInviteExhausted):
		writeError(w, http.StatusConflict, "Invite link has no uses left", services.ReasonCode(err))
	case errors.Is(err, services.ErrInviteAlreadyUsed):
		writeError(w, http.StatusConflict, "You already used this invite", services.ReasonCode(err))
	case errors.Is(err, services.ErrCannotInviteSelf):
		writeError(w, http.StatusBadRequest, "Cannot use your own invite link", services.ReasonCode(err))
	case errors.Is(err, services.ErrInviteLimitReached):
		writeError(w, http.StatusConflict, "Too many active invite links", services.ReasonCode(err))
	case errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "Not found", services.ReasonCode(err))
	case services.IsTransient(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Temporarily unavailable, please retry", services.ReasonCode(err))
	default:
		log.Printf("Unhandled service error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "internal")
	}
}
