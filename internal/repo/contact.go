package repo

import (
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactRepository handles contact data access
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// List returns all contacts, ordered by name or creation time
func (r *ContactRepository) List(orderBy string) ([]models.Contact, error) {
	order := "name ASC"
	if orderBy == "created" {
		order = "created_at DESC"
	}

	var contacts []models.Contact
	err := r.db.Order(order).Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// GetByID gets a contact by ID
func (r *ContactRepository) GetByID(id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.Where("id = ?", id).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByPhone gets a contact by its phone number
func (r *ContactRepository) GetByPhone(phone string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.Where("phone = ?", phone).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Create creates a new contact
func (r *ContactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

// Update updates a contact
func (r *ContactRepository) Update(contact *models.Contact) error {
	return r.db.Save(contact).Error
}

// FindOrCreateByPhone finds an existing contact by phone or creates a new
// one with the given type. New webhook contacts arrive with no name, so
// the phone doubles as the display name until someone edits it.
func (r *ContactRepository) FindOrCreateByPhone(phone string, contactType models.ContactType) (*models.Contact, error) {
	var contact models.Contact

	err := r.db.Where("phone = ?", phone).First(&contact).Error
	if err == nil {
		return &contact, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	contact = models.Contact{
		Type:  contactType,
		Name:  phone,
		Phone: phone,
	}

	if err := r.db.Create(&contact).Error; err != nil {
		return nil, err
	}

	return &contact, nil
}
