package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/services"
)

type InviteHandler struct {
	invites services.InviteLinkServiceInterface
	email   services.EmailServiceInterface
	baseURL string
}

func NewInviteHandler(invites services.InviteLinkServiceInterface, email services.EmailServiceInterface, baseURL string) *InviteHandler {
	return &InviteHandler{invites: invites, email: email, baseURL: baseURL}
}

type CreateInviteRequest struct {
	MaxUses int `json:"max_uses"`
	TTLDays int `json:"ttl_days"`
}

type ConsumeInviteRequest struct {
	Token string `json:"token"`
}

type EmailInviteRequest struct {
	Email   string `json:"email"`
	MaxUses int    `json:"max_uses"`
	TTLDays int    `json:"ttl_days"`
}

type InviteResponse struct {
	Link    *models.InviteLink `json:"link,omitempty"`
	URL     string             `json:"url,omitempty"`
	Message string             `json:"message,omitempty"`
}

type InviteListResponse struct {
	Links []models.InviteLink `json:"links"`
}

// shareURL carries the token as an opaque query parameter; the client owns
// the rest of the routing.
func (h *InviteHandler) shareURL(token string) string {
	return h.baseURL + "/invite?token=" + url.QueryEscape(token)
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	link, token, err := h.invites.GenerateLink(r.Context(), user.ID, req.MaxUses, req.TTLDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, InviteResponse{Link: link, URL: h.shareURL(token)})
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	links, err := h.invites.ListLinks(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InviteListResponse{Links: links})
}

func (h *InviteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "Missing token", "validation_failed")
		return
	}

	check, err := h.invites.ValidateLink(r.Context(), token, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, check)
}

func (h *InviteHandler) Consume(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	var req ConsumeInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	result, err := h.invites.ConsumeLink(r.Context(), req.Token, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InviteHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	linkID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invite ID", "validation_failed")
		return
	}

	if err := h.invites.DeactivateLink(r.Context(), user.ID, linkID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InviteResponse{Message: "Invite deactivated"})
}

// EmailInvite generates a link and emails it to the recipient. The committed
// link is reported even when delivery fails, so the caller can still share
// the URL directly.
func (h *InviteHandler) EmailInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
		return
	}

	var req EmailInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email address", "validation_failed")
		return
	}

	link, token, err := h.invites.GenerateLink(r.Context(), user.ID, req.MaxUses, req.TTLDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	inviteURL := h.shareURL(token)
	if err := h.email.SendInviteEmail(r.Context(), req.Email, user.DisplayName, inviteURL); err != nil {
		writeJSON(w, http.StatusAccepted, InviteResponse{
			Link:    link,
			URL:     inviteURL,
			Message: "Invite created but email delivery failed; share the link directly",
		})
		return
	}

	writeJSON(w, http.StatusCreated, InviteResponse{Link: link, URL: inviteURL, Message: "Invite sent"})
}
