package store

import "esupchat/pkg/models"

// DB adapts the package-level store functions to an injectable value, so
// consumers can depend on an interface and tests can swap in fakes.
type DB struct{}

func (DB) GetUser(id string) (models.User, bool, error) { return GetUser(id) }

func (DB) GetUserByName(username string) (models.User, bool, error) { return GetUserByName(username) }

func (DB) CreateUser(u models.User) (models.User, error) { return CreateUser(u) }

func (DB) CreateConversation(userID, title string) (models.Conversation, error) {
	return CreateConversation(userID, title)
}

func (DB) GetConversation(id, userID string) (models.Conversation, bool, error) {
	return GetConversation(id, userID)
}

func (DB) ListConversations(userID string) ([]models.Conversation, error) {
	return ListConversations(userID)
}

func (DB) AppendMessage(conversationID string, m models.Message) (models.Message, error) {
	return AppendMessage(conversationID, m)
}

func (DB) UpdateTitle(conversationID, title string) (models.Conversation, error) {
	return UpdateTitle(conversationID, title)
}

func (DB) DeleteConversation(id string) error { return DeleteConversation(id) }

func (DB) GetMessages(conversationID, userID string) ([]models.Message, error) {
	return GetMessages(conversationID, userID)
}
