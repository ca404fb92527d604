package handlers

import (
	"artisancrm/internal/app"
	"artisancrm/internal/webhook"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(e *echo.Echo, services *app.Services) {
	dashboardHandler := NewDashboardHandler(services.ContactRepo, services.DealRepo, services.MessageRepo)
	contactHandler := NewContactHandler(services.ContactRepo, services.DealRepo)
	dealHandler := NewDealHandler(services.ContactRepo, services.DealRepo, services.MessagingService)
	webhookHandler := webhook.NewWhatsAppWebhookHandler(services.MessagingService, services.WebhookVerifyToken)

	// Dashboard
	e.GET("/", dashboardHandler.Get)

	// Contact directory
	e.GET("/contacts", contactHandler.List)
	e.GET("/contacts/:id", contactHandler.GetByID)
	e.POST("/contacts/new", contactHandler.Create)
	e.POST("/contacts/:id/edit", contactHandler.Update)
	e.POST("/contacts/:id/update", contactHandler.Update)

	// Deals and pipeline
	e.POST("/deals/new", dealHandler.Create)
	e.POST("/deals/:id/status", dealHandler.UpdateStatus)
	e.POST("/deals/:id/send_message", dealHandler.SendMessage)

	// WhatsApp webhook (GET for provider handshake, POST for ingestion)
	e.GET("/webhook/whatsapp", webhookHandler.Verify)
	e.POST("/webhook/whatsapp", webhookHandler.Receive)
	e.POST("/webhook", webhookHandler.Receive)
}
