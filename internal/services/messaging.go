package services

import (
	"time"

	"artisancrm/internal/repo"
	"artisancrm/internal/whatsapp"
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TextSender sends a text message through an external provider
type TextSender interface {
	SendTextMessage(to, content string) (*string, error)
	Configured() bool
}

// MessagingService appends messages to a deal's thread and keeps the
// deal's denormalized summary in sync. Outbound sends go through the
// external provider; the local record is persisted regardless of the
// provider call's outcome (record intent even if delivery fails).
type MessagingService struct {
	contactRepo *repo.ContactRepository
	dealRepo    *repo.DealRepository
	messageRepo *repo.MessageRepository
	sender      TextSender
}

// NewMessagingService creates a new messaging service
func NewMessagingService(
	contactRepo *repo.ContactRepository,
	dealRepo *repo.DealRepository,
	messageRepo *repo.MessageRepository,
	sender TextSender,
) *MessagingService {
	return &MessagingService{
		contactRepo: contactRepo,
		dealRepo:    dealRepo,
		messageRepo: messageRepo,
		sender:      sender,
	}
}

// SendMessage resolves the deal and its contact, appends an outbound
// message, refreshes the deal summary, then relays the text through the
// provider. Provider failure is logged and does not roll anything back.
func (s *MessagingService) SendMessage(dealID uuid.UUID, content string) (*models.Message, error) {
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		return nil, err
	}

	contact, err := s.contactRepo.GetByID(deal.ContactID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := &models.Message{
		DealID:    deal.ID,
		ContactID: contact.ID,
		Direction: models.DirectionOut,
		Channel:   models.DefaultChannel,
		Content:   content,
		SentAt:    now,
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	if err := s.dealRepo.UpdateLastMessage(deal.ID, content, message.Channel, now); err != nil {
		return nil, err
	}

	if s.sender != nil && s.sender.Configured() {
		if _, err := s.sender.SendTextMessage(contact.Phone, content); err != nil {
			log.Error().Err(err).
				Str("deal_id", deal.ID.String()).
				Str("phone", contact.Phone).
				Msg("Failed to deliver message via WhatsApp")
		}
	} else {
		log.Warn().
			Str("deal_id", deal.ID.String()).
			Msg("WhatsApp client not configured, message recorded locally only")
	}

	return message, nil
}

// ReceiveMessage appends an inbound message for a contact identified by
// phone, creating the contact (as prospect) and deal when they do not
// exist yet, and reopening a closed deal.
func (s *MessagingService) ReceiveMessage(phone, content string, sentAt time.Time) (*models.Message, error) {
	contact, err := s.contactRepo.FindOrCreateByPhone(phone, models.ContactTypeProspect)
	if err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.FindOrCreateOpenByContact(contact.ID, "Conversation WhatsApp")
	if err != nil {
		return nil, err
	}

	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	message := &models.Message{
		DealID:    deal.ID,
		ContactID: contact.ID,
		Direction: models.DirectionIn,
		Channel:   models.DefaultChannel,
		Content:   content,
		SentAt:    sentAt,
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	if err := s.dealRepo.UpdateLastMessage(deal.ID, content, message.Channel, sentAt); err != nil {
		return nil, err
	}

	return message, nil
}

// Ensure the real client satisfies the interface
var _ TextSender = (*whatsapp.Client)(nil)
