package app

import (
	"os"

	"artisancrm/internal/repo"
	"artisancrm/internal/services"
	"artisancrm/internal/whatsapp"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	DB                 *gorm.DB
	ContactRepo        *repo.ContactRepository
	DealRepo           *repo.DealRepository
	MessageRepo        *repo.MessageRepository
	WhatsAppClient     *whatsapp.Client
	MessagingService   *services.MessagingService
	WebhookVerifyToken string
}

// NewServices creates a new services container
func NewServices(db *gorm.DB) *Services {
	contactRepo := repo.NewContactRepository(db)
	dealRepo := repo.NewDealRepository(db)
	messageRepo := repo.NewMessageRepository(db)

	whatsappClient := whatsapp.NewClient(
		os.Getenv("WHATSAPP_API_URL"),
		os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
	)
	if !whatsappClient.Configured() {
		log.Warn().Msg("WhatsApp credentials not set, outbound messages will only be recorded locally")
	}

	messagingService := services.NewMessagingService(contactRepo, dealRepo, messageRepo, whatsappClient)

	return &Services{
		DB:                 db,
		ContactRepo:        contactRepo,
		DealRepo:           dealRepo,
		MessageRepo:        messageRepo,
		WhatsAppClient:     whatsappClient,
		MessagingService:   messagingService,
		WebhookVerifyToken: os.Getenv("WHATSAPP_VERIFY_TOKEN"),
	}
}
