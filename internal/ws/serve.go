package ws

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ozodbek/chatline/internal/auth"
	"github.com/ozodbek/chatline/internal/store"
)

// Close codes for rejected admissions. Authentication and membership
// failures are distinguishable by code; neither exchanges any payload.
const (
	closeAuthFailure    = websocket.ClosePolicyViolation // 1008
	closeNotParticipant = websocket.CloseUnsupportedData // 1003

	reasonAuthFailure    = "authentication failed"
	reasonNotParticipant = "not a conversation participant"
)

// Server owns the websocket admission path: authenticate, authorize, admit,
// then run the connection's read loop. Membership is checked once here and
// trusted for the life of the connection; revoking membership does not cut
// an already admitted connection.
type Server struct {
	registry *Registry
	fanout   *Fanout
	store    store.Store
	tokens   *auth.TokenManager
	log      *slog.Logger

	sendBuffer     int
	maxMessageSize int64

	upgrader websocket.Upgrader
}

func NewServer(registry *Registry, fanout *Fanout, st store.Store, tokens *auth.TokenManager,
	sendBuffer int, maxMessageSize int64, log *slog.Logger) *Server {
	return &Server{
		registry:       registry,
		fanout:         fanout,
		store:          st,
		tokens:         tokens,
		log:            log,
		sendBuffer:     sendBuffer,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws/chat/{conversation_id}?token=...
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.Atoi(mux.Vars(r)["conversation_id"])
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		closeWithCode(conn, closeAuthFailure, reasonAuthFailure)
		return
	}
	user, err := s.store.GetUserByID(claims.UserID)
	if err != nil {
		closeWithCode(conn, closeAuthFailure, reasonAuthFailure)
		return
	}

	isParticipant, err := s.store.IsParticipant(conversationID, user.ID)
	if err != nil || !isParticipant {
		closeWithCode(conn, closeNotParticipant, reasonNotParticipant)
		return
	}

	client := newClient(conn, s.sendBuffer, s.maxMessageSize, s.log)
	if prior := s.registry.Admit(conversationID, user.ID, client); prior != nil {
		// Last writer wins; the superseded transport is closed rather
		// than leaked.
		prior.Close()
	}
	go client.writePump()

	s.log.Info("connection admitted", "conversation_id", conversationID, "user_id", user.ID)
	s.fanout.AnnounceJoin(conversationID, user)

	client.readPump(func(payload []byte) {
		s.fanout.HandleInbound(conversationID, user, payload)
	})

	// Transport closed: evict, then announce, so the departing user is
	// never an iteration target of the leave broadcast. The eviction is
	// skipped only when a replacement connection already took the slot or
	// a failed delivery evicted this handle first.
	if s.registry.evictIf(conversationID, user.ID, client) {
		s.fanout.AnnounceLeave(conversationID, user)
	}
	s.log.Info("connection closed", "conversation_id", conversationID, "user_id", user.ID)
}
