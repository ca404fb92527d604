package handlers

import (
	"net/http"
	"strings"

	"artisancrm/internal/pipeline"
	"artisancrm/internal/repo"
	"artisancrm/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContactHandler handles contact directory operations
type ContactHandler struct {
	contactRepo *repo.ContactRepository
	dealRepo    *repo.DealRepository
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactRepo *repo.ContactRepository, dealRepo *repo.DealRepository) *ContactHandler {
	return &ContactHandler{
		contactRepo: contactRepo,
		dealRepo:    dealRepo,
	}
}

// ContactForm carries the contact form fields. Empty optional fields are
// normalized to absent.
type ContactForm struct {
	Name    string `form:"name" json:"name" validate:"required"`
	Phone   string `form:"phone" json:"phone" validate:"required"`
	Type    string `form:"type" json:"type"`
	Email   string `form:"email" json:"email"`
	Company string `form:"company" json:"company"`
	Address string `form:"address" json:"address"`
	Tags    string `form:"tags" json:"tags"`
}

// List returns all contacts ordered by name, or by creation time with
// ?order=created
func (h *ContactHandler) List(c echo.Context) error {
	contacts, err := h.contactRepo.List(c.QueryParam("order"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, contacts)
}

// GetByID returns one contact
func (h *ContactHandler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	contact, err := h.contactRepo.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	return c.JSON(http.StatusOK, contact)
}

// Create creates a contact from the form, plus one default deal in the
// "new" status so the contact shows up on the board right away.
func (h *ContactHandler) Create(c echo.Context) error {
	var form ContactForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	normalizeContactForm(&form)
	if err := c.Validate(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	contact := models.Contact{
		Type:    models.ParseContactType(form.Type),
		Name:    form.Name,
		Phone:   form.Phone,
		Email:   form.Email,
		Company: form.Company,
		Address: form.Address,
		Tags:    form.Tags,
	}

	if err := h.contactRepo.Create(&contact); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	deal := models.Deal{
		Title:     "Premier contact - " + contact.Name,
		ContactID: contact.ID,
		Status:    pipeline.StatusNew,
	}
	if err := h.dealRepo.Create(&deal); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, contact)
	}
	return c.Redirect(http.StatusSeeOther, "/contacts")
}

// Update updates all mutable fields of a contact
func (h *ContactHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	contact, err := h.contactRepo.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	var form ContactForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	normalizeContactForm(&form)
	if err := c.Validate(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	contact.Type = models.ParseContactType(form.Type)
	contact.Name = form.Name
	contact.Phone = form.Phone
	contact.Email = form.Email
	contact.Company = form.Company
	contact.Address = form.Address
	contact.Tags = form.Tags

	if err := h.contactRepo.Update(contact); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, contact)
	}
	return c.Redirect(http.StatusSeeOther, "/contacts")
}

func normalizeContactForm(form *ContactForm) {
	form.Name = strings.TrimSpace(form.Name)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Type = strings.TrimSpace(form.Type)
	form.Email = strings.TrimSpace(form.Email)
	form.Company = strings.TrimSpace(form.Company)
	form.Address = strings.TrimSpace(form.Address)
	form.Tags = strings.TrimSpace(form.Tags)
}

// wantsJSON reports whether the caller is an AJAX client expecting a
// JSON body instead of a redirect
func wantsJSON(c echo.Context) bool {
	if c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.Request().Header.Get("Accept"), "application/json")
}
