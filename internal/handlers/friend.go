package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/services"
)

type FriendHandler struct {
	requests services.FriendRequestManagerInterface
}

func NewFriendHandler(requests services.FriendRequestManagerInterface) *FriendHandler {
	return &FriendHandler{requests: requests}
}

type SendRequestRequest struct {
	ToUserID string `json:"to_user_id"`
}

type FriendListResponse struct {
	Friends []models.FriendshipEdge `json:"friends"`
}

type RequestListResponse struct {
	Requests []models.IncomingRequest `json:"requests"`
}

type SentListResponse struct {
	Sent []models.SentRequest `json:"sent"`
}

type RequestResponse struct {
	Request *models.FriendRequest `json:"request,omitempty"`
	Message string                `json:"message,omitempty"`
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	friends, err := h.requests.ListFriends(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	friendID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend ID", "validation_failed")
		return
	}

	// Removing an absent friendship is a no-op, not an error.
	if err := h.requests.RemoveFriend(r.Context(), user.ID, friendID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestResponse{Message: "Friend removed"})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	var req SendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "validation_failed")
		return
	}

	request, err := h.requests.SendRequest(r.Context(), user.ID, toUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RequestResponse{Request: request, Message: "Friend request sent"})
}

func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	requests, err := h.requests.ListPendingRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestListResponse{Requests: requests})
}

func (h *FriendHandler) ListSentRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	sent, err := h.requests.ListSentRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SentListResponse{Sent: sent})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID", "validation_failed")
		return
	}

	result, err := h.requests.AcceptRequest(r.Context(), requestID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID", "validation_failed")
		return
	}

	if err := h.requests.RejectRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestResponse{Message: "Friend request rejected"})
}
