package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ozodbek/chatline/internal/middleware"
	"github.com/ozodbek/chatline/internal/models"
	"github.com/ozodbek/chatline/internal/store"
)

type ChatHandler struct {
	Store store.Store
}

type CreateConversationRequest struct {
	Name           string `json:"name"`
	IsGroup        bool   `json:"is_group"`
	ParticipantIDs []int  `json:"participant_ids"`
}

type CreateMessageRequest struct {
	ConversationID int    `json:"conversation_id" validate:"required"`
	Content        string `json:"content" validate:"required"`
	FileURL        string `json:"file_url"`
	FileName       string `json:"file_name"`
	FileType       string `json:"file_type"`
}

func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := h.Store.CreateConversation(req.Name, req.IsGroup, userID, req.ParticipantIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(conv)
}

func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.Store.GetUserConversations(middleware.UserID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	json.NewEncoder(w).Encode(conversations)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, _, ok := h.authorizeConversation(w, r)
	if !ok {
		return
	}

	conv, err := h.Store.GetConversation(conversationID)
	if err != nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(conv)
}

func (h *ChatHandler) GetConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, _, ok := h.authorizeConversation(w, r)
	if !ok {
		return
	}

	messages, err := h.Store.GetConversationMessages(conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

func (h *ChatHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	conversationID, _, ok := h.authorizeConversation(w, r)
	if !ok {
		return
	}

	participants, err := h.Store.GetParticipants(conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(participants)
}

// CreateMessage is the request/response path for sending a message; the
// realtime path lives in the ws package.
func (h *ChatHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	isParticipant, err := h.Store.IsParticipant(req.ConversationID, userID)
	if err != nil || !isParticipant {
		http.Error(w, "Conversation not found or access denied", http.StatusNotFound)
		return
	}

	var attachment *models.Attachment
	if req.FileURL != "" || req.FileName != "" || req.FileType != "" {
		attachment = &models.Attachment{URL: req.FileURL, Name: req.FileName, Type: req.FileType}
	}

	msg, err := h.Store.AppendMessage(req.ConversationID, userID, req.Content, attachment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// authorizeConversation parses the {id} route variable and verifies the
// caller's membership. A missing conversation and a denied one are not
// distinguished.
func (h *ChatHandler) authorizeConversation(w http.ResponseWriter, r *http.Request) (conversationID, userID int, ok bool) {
	conversationID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return 0, 0, false
	}
	userID = middleware.UserID(r)

	isParticipant, err := h.Store.IsParticipant(conversationID, userID)
	if err != nil || !isParticipant {
		http.Error(w, "Conversation not found or access denied", http.StatusNotFound)
		return 0, 0, false
	}
	return conversationID, userID, true
}
