package store

import (
	"errors"

	"github.com/ozodbek/chatline/internal/models"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	SearchUsers(query string, excludeUserID int) ([]models.User, error)

	// Conversation operations
	CreateConversation(name string, isGroup bool, createdBy int, participantIDs []int) (*models.Conversation, error)
	GetConversation(conversationID int) (*models.Conversation, error)
	GetUserConversations(userID int) ([]models.Conversation, error)
	IsParticipant(conversationID, userID int) (bool, error)
	GetParticipants(conversationID int) ([]models.User, error)

	// Message operations
	AppendMessage(conversationID, senderID int, content string, attachment *models.Attachment) (*models.Message, error)
	GetConversationMessages(conversationID int) ([]models.Message, error)
}
