package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"artisancrm/internal/pipeline"
	"artisancrm/internal/repo"
	"artisancrm/internal/services"
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// DealHandler handles deal and pipeline operations
type DealHandler struct {
	contactRepo *repo.ContactRepository
	dealRepo    *repo.DealRepository
	messaging   *services.MessagingService
}

// NewDealHandler creates a new deal handler
func NewDealHandler(contactRepo *repo.ContactRepository, dealRepo *repo.DealRepository, messaging *services.MessagingService) *DealHandler {
	return &DealHandler{
		contactRepo: contactRepo,
		dealRepo:    dealRepo,
		messaging:   messaging,
	}
}

// DealForm carries the deal creation form fields
type DealForm struct {
	Title           string `form:"title" json:"title" validate:"required"`
	ContactID       string `form:"contact_id" json:"contact_id" validate:"required"`
	AmountEstimated string `form:"amount_estimated" json:"amount_estimated"`
}

// Create creates a deal for an existing contact
func (h *DealHandler) Create(c echo.Context) error {
	var form DealForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	form.Title = strings.TrimSpace(form.Title)
	if err := c.Validate(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	contactID, err := uuid.Parse(form.ContactID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid contact_id format"})
	}

	contact, err := h.contactRepo.GetByID(contactID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	deal := models.Deal{
		Title:     form.Title,
		ContactID: contact.ID,
		Status:    pipeline.StatusNew,
	}
	if raw := strings.TrimSpace(form.AmountEstimated); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid amount_estimated"})
		}
		deal.AmountEstimated = &amount
	}

	if err := h.dealRepo.Create(&deal); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, deal)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// UpdateStatus moves a deal to a new pipeline status. The status is
// validated against the pipeline of the owning contact's profile; any
// valid status is reachable from any other (no adjacency checking).
func (h *DealHandler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	status := strings.TrimSpace(c.FormValue("status"))
	if status == "" {
		status = strings.TrimSpace(c.FormValue("new_status"))
	}
	if status == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status is required"})
	}

	deal, err := h.dealRepo.GetByIDWithContact(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Deal not found"})
	}

	profile := models.ContactTypeClient
	if deal.Contact != nil {
		profile = deal.Contact.Type
	}
	if !pipeline.ValidStatus(profile, status) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status: " + status})
	}

	if err := h.dealRepo.UpdateStatus(id, status); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "new_status": status})
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// SendMessage appends an outbound message to a deal's thread and relays
// it through WhatsApp
func (h *DealHandler) SendMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	content := strings.TrimSpace(c.FormValue("content"))
	if content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	message, err := h.messaging.SendMessage(id, content)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, message)
	}
	return c.Redirect(http.StatusSeeOther, "/?contact_id="+message.ContactID.String())
}
