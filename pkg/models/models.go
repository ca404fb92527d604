package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is the base model for all entities
type BaseModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ContactType classifies a contact and selects which pipeline applies
type ContactType string

const (
	ContactTypeClient      ContactType = "client"
	ContactTypeProspect    ContactType = "prospect"
	ContactTypeFournisseur ContactType = "fournisseur"
	ContactTypeAutre       ContactType = "autre"
)

// Valid reports whether the contact type is one of the known profiles
func (t ContactType) Valid() bool {
	switch t {
	case ContactTypeClient, ContactTypeProspect, ContactTypeFournisseur, ContactTypeAutre:
		return true
	}
	return false
}

// ParseContactType normalizes a raw profile string, falling back to client
func ParseContactType(s string) ContactType {
	t := ContactType(s)
	if !t.Valid() {
		return ContactTypeClient
	}
	return t
}

// MessageDirection indicates who sent a message relative to the business
type MessageDirection string

const (
	DirectionIn  MessageDirection = "in"  // received from the contact
	DirectionOut MessageDirection = "out" // sent by the business
)

// Valid reports whether the direction is one of the known values
func (d MessageDirection) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// DefaultChannel is the channel label applied when none is given
const DefaultChannel = "WhatsApp"

// Contact represents a person or company the business talks to.
// Phone is the natural key used to match inbound WhatsApp messages.
type Contact struct {
	BaseModel
	Type    ContactType `gorm:"type:varchar(20);not null;default:'client';index" json:"type"`
	Name    string      `gorm:"not null" json:"name" validate:"required"`
	Phone   string      `gorm:"not null;uniqueIndex" json:"phone" validate:"required"` // E.164
	Email   string      `json:"email,omitempty"`
	Company string      `json:"company,omitempty"`
	Address string      `json:"address,omitempty"`
	Tags    string      `json:"tags,omitempty"` // comma-separated
}

// Deal represents a tracked opportunity linked to one contact, moving
// through the pipeline statuses of the contact's profile.
type Deal struct {
	BaseModel
	Title           string    `gorm:"not null" json:"title" validate:"required"`
	ContactID       uuid.UUID `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"contact_id"`
	Status          string    `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	AmountEstimated *float64  `json:"amount_estimated,omitempty"`

	// Denormalized last-message summary for board rendering. Kept in sync
	// by every send/receive path through DealRepository.UpdateLastMessage.
	LastMessagePreview string     `json:"last_message_preview,omitempty"`
	LastMessageChannel string     `json:"last_message_channel,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`

	// Relations
	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
}

// Message represents one message in a deal's conversation thread.
// Messages are append-only; there is no update or delete path.
type Message struct {
	BaseModel
	DealID    uuid.UUID        `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"deal_id"`
	ContactID uuid.UUID        `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"contact_id"`
	Direction MessageDirection `gorm:"type:varchar(10);not null;index" json:"direction"`
	Channel   string           `gorm:"not null;default:'WhatsApp'" json:"channel"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	SentAt    time.Time        `gorm:"not null" json:"sent_at"`

	// Relations
	Deal    *Deal    `gorm:"foreignKey:DealID" json:"deal,omitempty"`
	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
}

// GetAllModels returns all models for AutoMigrate
func GetAllModels() []interface{} {
	return []interface{}{
		&Contact{},
		&Deal{},
		&Message{},
	}
}
