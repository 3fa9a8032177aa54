package sqlstore

import (
	"testing"

	"github.com/ozodbek/chatline/internal/models"
	"github.com/ozodbek/chatline/internal/store"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *SQLStore, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, HashedPassword: "hashed"}
	require.NoError(t, s.CreateUser(user))
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	user := createUser(t, s, "Alice", "alice@example.com")
	req.NotZero(user.ID)

	byEmail, err := s.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(user.ID, byEmail.ID)
	req.Equal("Alice", byEmail.Name)

	byID, err := s.GetUserByID(user.ID)
	req.NoError(err)
	req.Equal("alice@example.com", byID.Email)
}

func TestGetUserNotFound(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	_, err := s.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, store.ErrNotFound)

	_, err = s.GetUserByID(42)
	req.ErrorIs(err, store.ErrNotFound)
}

func TestDuplicateEmailRejected(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	createUser(t, s, "Alice", "alice@example.com")
	err := s.CreateUser(&models.User{Name: "Impostor", Email: "alice@example.com", HashedPassword: "x"})
	req.Error(err)
}

func TestSearchUsersExcludesCaller(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	createUser(t, s, "Alicia", "alicia@example.com")
	createUser(t, s, "Bob", "bob@example.com")

	results, err := s.SearchUsers("ali", alice.ID)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal("Alicia", results[0].Name)
}

func TestCreateConversationAddsEdges(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	bob := createUser(t, s, "Bob", "bob@example.com")
	clara := createUser(t, s, "Clara", "clara@example.com")

	conv, err := s.CreateConversation("team", true, alice.ID, []int{bob.ID, clara.ID, alice.ID})
	req.NoError(err)
	req.NotZero(conv.ID)
	req.Equal(alice.ID, conv.CreatedBy)
	req.True(conv.IsGroup)

	for _, userID := range []int{alice.ID, bob.ID, clara.ID} {
		ok, err := s.IsParticipant(conv.ID, userID)
		req.NoError(err)
		req.True(ok, "user %d should be a participant", userID)
	}

	participants, err := s.GetParticipants(conv.ID)
	req.NoError(err)
	req.Len(participants, 3)
}

func TestIsParticipantFalseForOutsider(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	outsider := createUser(t, s, "Mallory", "mallory@example.com")
	conv, err := s.CreateConversation("", false, alice.ID, nil)
	req.NoError(err)

	ok, err := s.IsParticipant(conv.ID, outsider.ID)
	req.NoError(err)
	req.False(ok)
}

func TestGetUserConversations(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	bob := createUser(t, s, "Bob", "bob@example.com")

	shared, err := s.CreateConversation("shared", false, alice.ID, []int{bob.ID})
	req.NoError(err)
	_, err = s.CreateConversation("alice only", false, alice.ID, nil)
	req.NoError(err)

	bobConvs, err := s.GetUserConversations(bob.ID)
	req.NoError(err)
	req.Len(bobConvs, 1)
	req.Equal(shared.ID, bobConvs[0].ID)

	aliceConvs, err := s.GetUserConversations(alice.ID)
	req.NoError(err)
	req.Len(aliceConvs, 2)
}

func TestAppendMessageOrdering(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	conv, err := s.CreateConversation("", false, alice.ID, nil)
	req.NoError(err)

	for _, content := range []string{"first", "second", "third"} {
		msg, err := s.AppendMessage(conv.ID, alice.ID, content, nil)
		req.NoError(err)
		req.NotZero(msg.ID)
		req.False(msg.IsRead)
	}

	messages, err := s.GetConversationMessages(conv.ID)
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)
	req.Equal("third", messages[2].Content)
	req.Equal("Alice", messages[0].SenderName)
	req.False(messages[1].Timestamp.Before(messages[0].Timestamp))
	req.False(messages[2].Timestamp.Before(messages[1].Timestamp))
}

func TestAppendMessageWithAttachment(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	conv, err := s.CreateConversation("", false, alice.ID, nil)
	req.NoError(err)

	attachment := &models.Attachment{
		URL:  "/files/download/abc.png",
		Name: "photo.png",
		Type: "image/png",
	}
	msg, err := s.AppendMessage(conv.ID, alice.ID, "see attached", attachment)
	req.NoError(err)
	req.Equal("photo.png", msg.FileName)

	messages, err := s.GetConversationMessages(conv.ID)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("/files/download/abc.png", messages[0].FileURL)
	req.Equal("image/png", messages[0].FileType)
}

func TestConcurrentAppendsAcrossConversations(t *testing.T) {
	req := require.New(t)
	s := newStore(t)

	alice := createUser(t, s, "Alice", "alice@example.com")
	convA, err := s.CreateConversation("a", false, alice.ID, nil)
	req.NoError(err)
	convB, err := s.CreateConversation("b", false, alice.ID, nil)
	req.NoError(err)

	done := make(chan error, 2)
	appendMany := func(conversationID int) {
		for i := 0; i < 20; i++ {
			if _, err := s.AppendMessage(conversationID, alice.ID, "x", nil); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}
	go appendMany(convA.ID)
	go appendMany(convB.ID)
	req.NoError(<-done)
	req.NoError(<-done)

	messages, err := s.GetConversationMessages(convA.ID)
	req.NoError(err)
	req.Len(messages, 20)
}
