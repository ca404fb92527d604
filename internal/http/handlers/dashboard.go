package handlers

import (
	"net/http"
	"strconv"

	"artisancrm/internal/pipeline"
	"artisancrm/internal/repo"
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DashboardHandler composes the kanban board and the selected
// conversation thread
type DashboardHandler struct {
	contactRepo *repo.ContactRepository
	dealRepo    *repo.DealRepository
	messageRepo *repo.MessageRepository
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(contactRepo *repo.ContactRepository, dealRepo *repo.DealRepository, messageRepo *repo.MessageRepository) *DashboardHandler {
	return &DashboardHandler{
		contactRepo: contactRepo,
		dealRepo:    dealRepo,
		messageRepo: messageRepo,
	}
}

// DashboardResponse is the board plus the selected conversation
type DashboardResponse struct {
	Profile  models.ContactType             `json:"profile"`
	Columns  []pipeline.Column              `json:"columns"`
	Deals    map[string][]pipeline.DealCard `json:"deals_by_status"`
	Selected *ConversationThread            `json:"selected,omitempty"`
}

// ConversationThread is one contact's message history
type ConversationThread struct {
	Contact  models.Contact   `json:"contact"`
	Deals    []models.Deal    `json:"deals"`
	Messages []models.Message `json:"messages"`
}

// Get renders the dashboard: pipeline columns for the requested profile,
// deals bucketed per column, and the selected contact's thread. Query
// parameters: profile (client|prospect|fournisseur|autre), contact_id,
// limit/offset for the thread's message history.
func (h *DashboardHandler) Get(c echo.Context) error {
	profile := models.ParseContactType(c.QueryParam("profile"))

	deals, err := h.dealRepo.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var cards []pipeline.DealCard
	for _, deal := range deals {
		if deal.Contact == nil || deal.Contact.Type != profile {
			continue
		}
		contact := *deal.Contact
		deal.Contact = nil
		cards = append(cards, pipeline.DealCard{Deal: deal, Contact: contact})
	}

	response := DashboardResponse{
		Profile: profile,
		Columns: pipeline.Columns(profile),
		Deals:   pipeline.Classify(profile, cards),
	}

	selectedID := h.selectedContactID(c, response)
	if selectedID != uuid.Nil {
		thread, err := h.loadThread(c, selectedID)
		if err == nil {
			response.Selected = thread
		}
	}

	return c.JSON(http.StatusOK, response)
}

// selectedContactID resolves the thread to show: the contact_id query
// parameter when present, otherwise the first card on the board
func (h *DashboardHandler) selectedContactID(c echo.Context, response DashboardResponse) uuid.UUID {
	if raw := c.QueryParam("contact_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
		return uuid.Nil
	}

	for _, col := range response.Columns {
		if cards := response.Deals[col.ID]; len(cards) > 0 {
			return cards[0].Contact.ID
		}
	}
	return uuid.Nil
}

func (h *DashboardHandler) loadThread(c echo.Context, contactID uuid.UUID) (*ConversationThread, error) {
	contact, err := h.contactRepo.GetByID(contactID)
	if err != nil {
		return nil, err
	}

	deals, err := h.dealRepo.ListByContact(contactID)
	if err != nil {
		return nil, err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	messages, err := h.messageRepo.ListByContact(contactID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &ConversationThread{
		Contact:  *contact,
		Deals:    deals,
		Messages: messages,
	}, nil
}
