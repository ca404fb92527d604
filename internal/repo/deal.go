package repo

import (
	"time"

	"artisancrm/internal/pipeline"
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PreviewLength is the maximum rune length of the denormalized
// last-message preview stored on a deal.
const PreviewLength = 120

// DealRepository handles deal data access
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// GetByID gets a deal by ID
func (r *DealRepository) GetByID(id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetByIDWithContact gets a deal by ID with its contact preloaded
func (r *DealRepository) GetByIDWithContact(id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.Preload("Contact").Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// List returns all deals with their contacts, most recently touched first
func (r *DealRepository) List() ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Preload("Contact").
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// ListByContact returns all deals for one contact, newest first
func (r *DealRepository) ListByContact(contactID uuid.UUID) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Where("contact_id = ?", contactID).
		Order("created_at DESC").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// Create creates a new deal
func (r *DealRepository) Create(deal *models.Deal) error {
	if deal.Status == "" {
		deal.Status = pipeline.StatusNew
	}
	return r.db.Create(deal).Error
}

// UpdateStatus persists a new status for a deal.
// Returns gorm.ErrRecordNotFound when the deal does not exist.
func (r *DealRepository) UpdateStatus(id uuid.UUID, status string) error {
	result := r.db.Model(&models.Deal{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindOrCreateOpenByContact returns the contact's most recent deal,
// reopening it (status reset to "new") when it sits in a terminal
// status. When the contact has no deal at all, a new one is created
// with the given title.
func (r *DealRepository) FindOrCreateOpenByContact(contactID uuid.UUID, title string) (*models.Deal, error) {
	var deal models.Deal

	err := r.db.Where("contact_id = ?", contactID).
		Order("created_at DESC").
		First(&deal).Error
	if err == nil {
		if pipeline.IsClosed(deal.Status) {
			if err := r.db.Model(&deal).Update("status", pipeline.StatusNew).Error; err != nil {
				return nil, err
			}
			deal.Status = pipeline.StatusNew
		}
		return &deal, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	deal = models.Deal{
		Title:     title,
		ContactID: contactID,
		Status:    pipeline.StatusNew,
	}

	if err := r.db.Create(&deal).Error; err != nil {
		return nil, err
	}

	return &deal, nil
}

// UpdateLastMessage refreshes the denormalized summary fields on a deal.
// Every message-append path goes through here so the summary always
// reflects the latest message for the deal.
func (r *DealRepository) UpdateLastMessage(dealID uuid.UUID, content, channel string, at time.Time) error {
	result := r.db.Model(&models.Deal{}).Where("id = ?", dealID).Updates(map[string]interface{}{
		"last_message_preview": truncatePreview(content),
		"last_message_channel": channel,
		"last_message_at":      at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength])
}
