package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ozodbek/chatline/internal/models"
	"github.com/ozodbek/chatline/internal/store"
)

// Fanout turns one inbound payload into a persisted message plus outbound
// deliveries, and lifecycle transitions into system notices. Persistence
// always precedes broadcast: a payload that fails to store is never seen by
// the other participants.
type Fanout struct {
	registry *Registry
	store    store.Store
	log      *slog.Logger
}

func NewFanout(registry *Registry, st store.Store, log *slog.Logger) *Fanout {
	return &Fanout{registry: registry, store: st, log: log}
}

// HandleInbound processes one payload from an admitted connection.
//
// A payload that does not parse is dropped and logged; the connection stays
// open and no error frame is sent back (the drop is deliberate, matching the
// protocol's recoverable-error semantics). A store failure is reported to
// the sender alone as an "error" event.
func (f *Fanout) HandleInbound(conversationID int, sender *models.User, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		f.log.Warn("dropping malformed payload",
			"conversation_id", conversationID, "sender_id", sender.ID, "error", err)
		return
	}

	var attachment *models.Attachment
	if in.FileURL != "" || in.FileName != "" || in.FileType != "" {
		attachment = &models.Attachment{URL: in.FileURL, Name: in.FileName, Type: in.FileType}
	}

	msg, err := f.store.AppendMessage(conversationID, sender.ID, in.Content, attachment)
	if err != nil {
		f.log.Error("message append failed",
			"conversation_id", conversationID, "sender_id", sender.ID, "error", err)
		f.registry.DeliverTo(conversationID, sender.ID, mustMarshal(errorEvent{
			Type:      "error",
			Content:   "message could not be saved",
			Timestamp: eventTimestamp(time.Now()),
		}))
		return
	}

	f.broadcast(conversationID, mustMarshal(messageEvent{
		Type:       "message",
		ID:         msg.ID,
		Content:    msg.Content,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Timestamp:  eventTimestamp(msg.Timestamp),
	}), sender.ID)

	f.registry.DeliverTo(conversationID, sender.ID, mustMarshal(messageSentEvent{
		Type:      "message_sent",
		ID:        msg.ID,
		Content:   msg.Content,
		Timestamp: eventTimestamp(msg.Timestamp),
	}))
}

// AnnounceJoin broadcasts the join notice to the whole conversation, the
// joining user included.
func (f *Fanout) AnnounceJoin(conversationID int, user *models.User) {
	f.broadcast(conversationID, systemNotice(fmt.Sprintf("%s joined the conversation", user.Name)), 0)
}

// AnnounceLeave broadcasts the leave notice. The caller evicts the departing
// connection first, so it is never an iteration target here.
func (f *Fanout) AnnounceLeave(conversationID int, user *models.User) {
	f.broadcast(conversationID, systemNotice(fmt.Sprintf("%s left the conversation", user.Name)), 0)
}

// broadcast delivers the payload and announces the departure of any
// recipient whose handle failed mid-delivery.
func (f *Fanout) broadcast(conversationID int, payload []byte, excludeUserID int) {
	for _, userID := range f.registry.Broadcast(conversationID, payload, excludeUserID) {
		f.log.Info("evicted unresponsive connection",
			"conversation_id", conversationID, "user_id", userID)
		user, err := f.store.GetUserByID(userID)
		if err != nil {
			continue
		}
		f.AnnounceLeave(conversationID, user)
	}
}

func systemNotice(content string) []byte {
	return mustMarshal(systemEvent{
		Type:      "system",
		Content:   content,
		SenderID:  nil,
		Timestamp: eventTimestamp(time.Now()),
	})
}
