package repositories

import (
	"github.com/SL1dee36/Connect/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for direct-message data operations
type MessageRepository interface {
	CreateMessage(message *models.Message) error
	GetThread(userID, otherID uint) ([]models.Message, error)
	MarkThreadRead(viewerID, counterpartID uint) error
	TakeUnread(viewerID, counterpartID uint) ([]models.Message, error)
	CountUnread(viewerID, counterpartID uint) (int64, error)
	HasConversation(userID, otherID uint) (bool, error)
	GetChatSummaries(viewerID uint) ([]models.ChatSummary, error)
}

// PostgresMessageRepository implements MessageRepository for PostgreSQL
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// CreateMessage stores a new message
func (r *PostgresMessageRepository) CreateMessage(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetThread returns all messages between two users ordered by timestamp
// ascending.
func (r *PostgresMessageRepository) GetThread(userID, otherID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where(
		"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		userID, otherID, otherID, userID).
		Order("timestamp asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkThreadRead marks every unread message sent by counterpart to viewer as
// read. A single UPDATE keeps the scan atomic; repeating the call changes
// nothing.
func (r *PostgresMessageRepository) MarkThreadRead(viewerID, counterpartID uint) error {
	return r.db.Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read = ?", counterpartID, viewerID, false).
		Update("read", true).Error
}

// TakeUnread returns the unread messages sent by counterpart to viewer and
// marks them read in the same transaction. A second call yields an empty
// delta.
func (r *PostgresMessageRepository) TakeUnread(viewerID, counterpartID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ? AND recipient_id = ? AND read = ?",
			counterpartID, viewerID, false).
			Order("timestamp asc").
			Find(&messages).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		ids := make([]uint, len(messages))
		for i := range messages {
			ids[i] = messages[i].ID
			messages[i].Read = true
		}
		return tx.Model(&models.Message{}).Where("id IN ?", ids).Update("read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountUnread counts messages from counterpart to viewer with read=false
func (r *PostgresMessageRepository) CountUnread(viewerID, counterpartID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read = ?", counterpartID, viewerID, false).
		Count(&count).Error
	return count, err
}

// HasConversation reports whether any message exists between two users in
// either direction.
func (r *PostgresMessageRepository) HasConversation(userID, otherID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, otherID, otherID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetChatSummaries builds one summary per distinct counterpart the viewer has
// exchanged messages with: the counterpart user, the most recent message
// between them and the viewer's unread count for that counterpart.
func (r *PostgresMessageRepository) GetChatSummaries(viewerID uint) ([]models.ChatSummary, error) {
	var all []models.Message
	if err := r.db.Where("sender_id = ? OR recipient_id = ?", viewerID, viewerID).
		Find(&all).Error; err != nil {
		return nil, err
	}

	counterparts := make([]uint, 0)
	seen := make(map[uint]bool)
	for _, m := range all {
		other := m.SenderID
		if other == viewerID {
			other = m.RecipientID
		}
		if !seen[other] {
			seen[other] = true
			counterparts = append(counterparts, other)
		}
	}

	summaries := make([]models.ChatSummary, 0, len(counterparts))
	for _, otherID := range counterparts {
		var user models.User
		if err := r.db.First(&user, otherID).Error; err != nil {
			return nil, err
		}

		var last models.Message
		err := r.db.Where(
			"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			viewerID, otherID, otherID, viewerID).
			Order("timestamp desc").
			First(&last).Error
		if err != nil {
			return nil, err
		}

		unread, err := r.CountUnread(viewerID, otherID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, models.ChatSummary{
			User:        user,
			LastMessage: &last,
			UnreadCount: unread,
		})
	}
	return summaries, nil
}
