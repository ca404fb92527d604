package repo

import (
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository handles message data access.
// Messages are append-only: there is no update or delete here.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message
func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// ListByDeal returns a deal's messages in send order, oldest first.
// limit <= 0 means no limit.
func (r *MessageRepository) ListByDeal(dealID uuid.UUID, limit, offset int) ([]models.Message, error) {
	q := r.db.Where("deal_id = ?", dealID).Order("sent_at ASC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var messages []models.Message
	err := q.Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListByContact returns every message across a contact's deals, oldest
// first, for the per-contact conversation thread.
func (r *MessageRepository) ListByContact(contactID uuid.UUID, limit, offset int) ([]models.Message, error) {
	q := r.db.Where("contact_id = ?", contactID).Order("sent_at ASC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var messages []models.Message
	err := q.Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountByDeal returns the number of messages in a deal's thread
func (r *MessageRepository) CountByDeal(dealID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).Where("deal_id = ?", dealID).Count(&count).Error
	return count, err
}
