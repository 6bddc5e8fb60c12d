package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"matchlink/internal/middleware"
	"matchlink/internal/models"
	"matchlink/internal/services"

	"github.com/gorilla/mux"
)

// InvitationHandler wraps the HTTP handlers for invitation operations.
type InvitationHandler struct {
	invitationService services.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// SendInvitationRequest is the JSON body for POST /api/v1/invitations.
type SendInvitationRequest struct {
	ReceiverID uint   `json:"receiverId"`
	Message    string `json:"message,omitempty"`
}

// AdminSetStatusRequest is the JSON body for the admin status override.
type AdminSetStatusRequest struct {
	Status models.InvitationStatus `json:"status"`
}

// SendInvitationHandler handles POST /api/v1/invitations
func (h *InvitationHandler) SendInvitationHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req SendInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.ReceiverID == 0 {
		writeJSONError(w, "receiverId is required", http.StatusBadRequest)
		return
	}

	view, err := h.invitationService.Send(r.Context(), senderID, req.ReceiverID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, view)
}

// AcceptInvitationHandler handles POST /api/v1/invitations/{invitationID}/accept
func (h *InvitationHandler) AcceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	view, err := h.invitationService.Accept(r.Context(), callerID, mux.Vars(r)["invitationID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

// DeclineInvitationHandler handles POST /api/v1/invitations/{invitationID}/decline
func (h *InvitationHandler) DeclineInvitationHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	view, err := h.invitationService.Decline(r.Context(), callerID, mux.Vars(r)["invitationID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

// ListInvitationsHandler handles GET /api/v1/invitations
func (h *InvitationHandler) ListInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	role, _ := middleware.GetRoleFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var statusFilter *models.InvitationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.InvitationStatus(raw)
		statusFilter = &status
	}

	list, err := h.invitationService.List(r.Context(), callerID, role, page, limit, statusFilter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, list)
}

// AdminSetStatusHandler handles PUT /api/v1/admin/invitations/{invitationID}/status
func (h *InvitationHandler) AdminSetStatusHandler(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req AdminSetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	view, err := h.invitationService.AdminSetStatus(r.Context(), role, mux.Vars(r)["invitationID"], req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}
