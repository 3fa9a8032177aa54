package sqlstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/ozodbek/chatline/internal/models"
	"github.com/ozodbek/chatline/internal/store"
)

type SQLStore struct {
	db *sql.DB

	// Serializes message appends so timestamps are non-decreasing in
	// insertion order within a conversation.
	appendMu sync.Mutex
}

func New(dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	// sqlite allows a single writer; a second connection would return
	// "database is locked" under concurrent appends.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		hashed_password TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		is_group BOOLEAN DEFAULT FALSE,
		created_by INTEGER REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS participants (
		conversation_id INTEGER,
		user_id INTEGER,
		PRIMARY KEY (conversation_id, user_id),
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		is_read BOOLEAN DEFAULT FALSE,
		timestamp DATETIME NOT NULL,
		file_url TEXT,
		file_name TEXT,
		file_type TEXT,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (sender_id) REFERENCES users(id)
	);
	`

	_, err := s.db.Exec(query)
	return err
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := "INSERT INTO users (name, email, hashed_password) VALUES (?, ?, ?) RETURNING id, created_at"
	return s.db.QueryRow(query, user.Name, user.Email, user.HashedPassword).Scan(&user.ID, &user.CreatedAt)
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := "SELECT id, name, email, hashed_password, created_at FROM users WHERE email = ?"
	err := s.db.QueryRow(query, email).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := "SELECT id, name, email, hashed_password, created_at FROM users WHERE id = ?"
	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) SearchUsers(queryStr string, excludeUserID int) ([]models.User, error) {
	query := `
		SELECT id, name, email, created_at FROM users
		WHERE id != ? AND (name LIKE ? OR email LIKE ?)
		LIMIT 20
	`
	pattern := "%" + queryStr + "%"
	rows, err := s.db.Query(query, excludeUserID, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateConversation inserts the conversation and all membership edges in one
// transaction. The creator is always a participant; duplicate and
// creator-repeating ids in participantIDs are skipped.
func (s *SQLStore) CreateConversation(name string, isGroup bool, createdBy int, participantIDs []int) (*models.Conversation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var conv models.Conversation
	conv.Name = name
	conv.IsGroup = isGroup
	conv.CreatedBy = createdBy

	query := "INSERT INTO conversations (name, is_group, created_by) VALUES (?, ?, ?) RETURNING id, created_at"
	if err := tx.QueryRow(query, name, isGroup, createdBy).Scan(&conv.ID, &conv.CreatedAt); err != nil {
		return nil, err
	}

	insertEdge := "INSERT OR IGNORE INTO participants (conversation_id, user_id) VALUES (?, ?)"
	if _, err := tx.Exec(insertEdge, conv.ID, createdBy); err != nil {
		return nil, err
	}
	for _, userID := range participantIDs {
		if userID == createdBy {
			continue
		}
		if _, err := tx.Exec(insertEdge, conv.ID, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *SQLStore) GetConversation(conversationID int) (*models.Conversation, error) {
	var conv models.Conversation
	var name sql.NullString
	query := "SELECT id, name, is_group, created_by, created_at FROM conversations WHERE id = ?"
	err := s.db.QueryRow(query, conversationID).Scan(&conv.ID, &name, &conv.IsGroup, &conv.CreatedBy, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	conv.Name = name.String
	return &conv, nil
}

func (s *SQLStore) GetUserConversations(userID int) ([]models.Conversation, error) {
	query := `
		SELECT c.id, c.name, c.is_group, c.created_by, c.created_at
		FROM conversations c
		JOIN participants p ON c.id = p.conversation_id
		WHERE p.user_id = ?
	`
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var name sql.NullString
		if err := rows.Scan(&conv.ID, &name, &conv.IsGroup, &conv.CreatedBy, &conv.CreatedAt); err != nil {
			return nil, err
		}
		conv.Name = name.String
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (s *SQLStore) IsParticipant(conversationID, userID int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM participants WHERE conversation_id = ? AND user_id = ?)"
	err := s.db.QueryRow(query, conversationID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) GetParticipants(conversationID int) ([]models.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.created_at
		FROM users u
		JOIN participants p ON u.id = p.user_id
		WHERE p.conversation_id = ?
	`
	rows, err := s.db.Query(query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) AppendMessage(conversationID, senderID int, content string, attachment *models.Attachment) (*models.Message, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	msg := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
	if attachment != nil {
		msg.FileURL = attachment.URL
		msg.FileName = attachment.Name
		msg.FileType = attachment.Type
	}

	query := `
		INSERT INTO messages (conversation_id, sender_id, content, is_read, timestamp, file_url, file_name, file_type)
		VALUES (?, ?, ?, FALSE, ?, ?, ?, ?)
		RETURNING id
	`
	err := s.db.QueryRow(query,
		msg.ConversationID, msg.SenderID, msg.Content, msg.Timestamp,
		nullable(msg.FileURL), nullable(msg.FileName), nullable(msg.FileType),
	).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &msg, nil
}

func (s *SQLStore) GetConversationMessages(conversationID int) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, u.name, m.content, m.is_read, m.timestamp,
		       COALESCE(m.file_url, ''), COALESCE(m.file_name, ''), COALESCE(m.file_type, '')
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = ?
		ORDER BY m.timestamp ASC, m.id ASC
	`
	rows, err := s.db.Query(query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &m.IsRead, &m.Timestamp,
			&m.FileURL, &m.FileName, &m.FileType); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
