package store

import "helixrecruit/pkg/domain"

// Store defines persistence operations for users and chat history.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// chat history
	AppendMessage(domain.ChatMessage) error
	ListMessagesByUser(userID string, limit int) ([]domain.ChatMessage, error)
}
