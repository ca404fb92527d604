package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"artisancrm/internal/app"
	"artisancrm/internal/pipeline"
	"artisancrm/internal/repo"
	"artisancrm/internal/services"
	"artisancrm/internal/whatsapp"
	"artisancrm/pkg/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newTestEnv(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.GetAllModels()...))

	contactRepo := repo.NewContactRepository(db)
	dealRepo := repo.NewDealRepository(db)
	messageRepo := repo.NewMessageRepository(db)

	// unconfigured client: outbound sends are recorded locally only
	client := whatsapp.NewClient("", "", "")

	svcs := &app.Services{
		DB:                 db,
		ContactRepo:        contactRepo,
		DealRepo:           dealRepo,
		MessageRepo:        messageRepo,
		WhatsAppClient:     client,
		MessagingService:   services.NewMessagingService(contactRepo, dealRepo, messageRepo, client),
		WebhookVerifyToken: "test-verify-token",
	}

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	SetupRoutes(e, svcs)

	return e, db
}

func postForm(e *echo.Echo, path string, form url.Values, ajax bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if ajax {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func seedContactWithDeal(t *testing.T, db *gorm.DB, typ models.ContactType, phone string) (*models.Contact, *models.Deal) {
	t.Helper()
	contact := &models.Contact{Type: typ, Name: "Contact", Phone: phone}
	require.NoError(t, db.Create(contact).Error)
	deal := &models.Deal{Title: "Devis", ContactID: contact.ID, Status: pipeline.StatusNew}
	require.NoError(t, db.Create(deal).Error)
	return contact, deal
}

func TestCreateContactRedirectsAndCreatesDefaultDeal(t *testing.T) {
	e, db := newTestEnv(t)

	form := url.Values{}
	form.Set("name", "Mme Dupont")
	form.Set("phone", "+966555555501")
	rec := postForm(e, "/contacts/new", form, false)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contacts", rec.Header().Get("Location"))

	var contact models.Contact
	require.NoError(t, db.First(&contact, "phone = ?", "+966555555501").Error)
	assert.Equal(t, "Mme Dupont", contact.Name)
	assert.Equal(t, models.ContactTypeClient, contact.Type)

	var deals []models.Deal
	require.NoError(t, db.Where("contact_id = ?", contact.ID).Find(&deals).Error)
	require.Len(t, deals, 1)
	assert.Equal(t, pipeline.StatusNew, deals[0].Status)
}

func TestCreateContactMissingPhone(t *testing.T) {
	e, _ := newTestEnv(t)

	form := url.Values{}
	form.Set("name", "Sans Téléphone")
	rec := postForm(e, "/contacts/new", form, false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListContacts(t *testing.T) {
	e, db := newTestEnv(t)
	seedContactWithDeal(t, db, models.ContactTypeClient, "+33601111111")

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, "+33601111111", contacts[0].Phone)
}

func TestUpdateContact(t *testing.T) {
	e, db := newTestEnv(t)
	contact, _ := seedContactWithDeal(t, db, models.ContactTypeClient, "+33602222222")

	form := url.Values{}
	form.Set("name", "Nouveau Nom")
	form.Set("phone", "+33602222222")
	form.Set("type", "prospect")
	form.Set("company", "SARL Dupont")
	rec := postForm(e, "/contacts/"+contact.ID.String()+"/edit", form, false)

	assert.Equal(t, http.StatusSeeOther, rec.Code)

	var stored models.Contact
	require.NoError(t, db.First(&stored, "id = ?", contact.ID).Error)
	assert.Equal(t, "Nouveau Nom", stored.Name)
	assert.Equal(t, models.ContactTypeProspect, stored.Type)
	assert.Equal(t, "SARL Dupont", stored.Company)
}

func TestUpdateContactNotFound(t *testing.T) {
	e, _ := newTestEnv(t)

	form := url.Values{}
	form.Set("name", "X")
	form.Set("phone", "+33600000000")
	rec := postForm(e, "/contacts/11111111-2222-3333-4444-555555555555/edit", form, false)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateDealForContact(t *testing.T) {
	e, db := newTestEnv(t)
	contact, _ := seedContactWithDeal(t, db, models.ContactTypeClient, "+33603333333")

	form := url.Values{}
	form.Set("title", "Rénovation cuisine")
	form.Set("contact_id", contact.ID.String())
	form.Set("amount_estimated", "2500.50")
	rec := postForm(e, "/deals/new", form, true)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var deal models.Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deal))
	assert.Equal(t, pipeline.StatusNew, deal.Status)
	require.NotNil(t, deal.AmountEstimated)
	assert.InDelta(t, 2500.50, *deal.AmountEstimated, 0.001)
}

func TestCreateDealUnknownContact(t *testing.T) {
	e, _ := newTestEnv(t)

	form := url.Values{}
	form.Set("title", "Devis")
	form.Set("contact_id", "11111111-2222-3333-4444-555555555555")
	rec := postForm(e, "/deals/new", form, true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDealStatusJSON(t *testing.T) {
	e, db := newTestEnv(t)
	_, deal := seedContactWithDeal(t, db, models.ContactTypeProspect, "+33604444444")

	form := url.Values{}
	form.Set("status", pipeline.StatusQuote)
	rec := postForm(e, "/deals/"+deal.ID.String()+"/status", form, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, pipeline.StatusQuote, body["new_status"])

	var stored models.Deal
	require.NoError(t, db.First(&stored, "id = ?", deal.ID).Error)
	assert.Equal(t, pipeline.StatusQuote, stored.Status)
}

func TestUpdateDealStatusAcceptsNewStatusField(t *testing.T) {
	e, db := newTestEnv(t)
	_, deal := seedContactWithDeal(t, db, models.ContactTypeProspect, "+33605555555")

	form := url.Values{}
	form.Set("new_status", pipeline.StatusFollowup)
	rec := postForm(e, "/deals/"+deal.ID.String()+"/status", form, true)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateDealStatusRejectsUnknownStatus(t *testing.T) {
	e, db := newTestEnv(t)
	_, deal := seedContactWithDeal(t, db, models.ContactTypeProspect, "+33606666666")

	form := url.Values{}
	form.Set("status", "not_a_status")
	rec := postForm(e, "/deals/"+deal.ID.String()+"/status", form, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var stored models.Deal
	require.NoError(t, db.First(&stored, "id = ?", deal.ID).Error)
	assert.Equal(t, pipeline.StatusNew, stored.Status)
}

func TestUpdateDealStatusRejectsOtherProfilesStatus(t *testing.T) {
	e, db := newTestEnv(t)
	// quote belongs to the prospect pipeline, the deal's contact is a client
	_, deal := seedContactWithDeal(t, db, models.ContactTypeClient, "+33607777777")

	form := url.Values{}
	form.Set("status", pipeline.StatusQuote)
	rec := postForm(e, "/deals/"+deal.ID.String()+"/status", form, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateDealStatusNotFound(t *testing.T) {
	e, _ := newTestEnv(t)

	form := url.Values{}
	form.Set("status", pipeline.StatusDone)
	rec := postForm(e, "/deals/11111111-2222-3333-4444-555555555555/status", form, true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDealStatusRedirectsNonAJAX(t *testing.T) {
	e, db := newTestEnv(t)
	_, deal := seedContactWithDeal(t, db, models.ContactTypeClient, "+33608888888")

	form := url.Values{}
	form.Set("status", pipeline.StatusInProgress)
	rec := postForm(e, "/deals/"+deal.ID.String()+"/status", form, false)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSendMessagePersistsOutboundAndSummary(t *testing.T) {
	e, db := newTestEnv(t)
	contact, deal := seedContactWithDeal(t, db, models.ContactTypeClient, "+33609999999")

	form := url.Values{}
	form.Set("content", "Bonjour, votre intervention est planifiée")
	rec := postForm(e, "/deals/"+deal.ID.String()+"/send_message", form, true)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var message models.Message
	require.NoError(t, db.First(&message, "deal_id = ?", deal.ID).Error)
	assert.Equal(t, models.DirectionOut, message.Direction)
	assert.Equal(t, contact.ID, message.ContactID)

	var stored models.Deal
	require.NoError(t, db.First(&stored, "id = ?", deal.ID).Error)
	assert.Equal(t, "Bonjour, votre intervention est planifiée", stored.LastMessagePreview)
	assert.Equal(t, models.DefaultChannel, stored.LastMessageChannel)
	require.NotNil(t, stored.LastMessageAt)
}

func TestSendMessageEmptyContent(t *testing.T) {
	e, db := newTestEnv(t)
	_, deal := seedContactWithDeal(t, db, models.ContactTypeClient, "+33610000000")

	form := url.Values{}
	form.Set("content", "   ")
	rec := postForm(e, "/deals/"+deal.ID.String()+"/send_message", form, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageUnknownDeal(t *testing.T) {
	e, _ := newTestEnv(t)

	form := url.Values{}
	form.Set("content", "hello")
	rec := postForm(e, "/deals/11111111-2222-3333-4444-555555555555/send_message", form, true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardBucketsByProfile(t *testing.T) {
	e, db := newTestEnv(t)
	prospect, prospectDeal := seedContactWithDeal(t, db, models.ContactTypeProspect, "+33611111112")
	seedContactWithDeal(t, db, models.ContactTypeClient, "+33611111113")
	require.NoError(t, db.Model(&models.Deal{}).Where("id = ?", prospectDeal.ID).Update("status", pipeline.StatusQuote).Error)

	req := httptest.NewRequest(http.MethodGet, "/?profile=prospect", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ContactTypeProspect, body.Profile)
	require.Len(t, body.Columns, 5)
	assert.Len(t, body.Deals[pipeline.StatusQuote], 1)
	assert.Empty(t, body.Deals[pipeline.StatusNew])

	// the client contact's deal must not leak into the prospect board
	for _, cards := range body.Deals {
		for _, card := range cards {
			assert.Equal(t, prospect.ID, card.Contact.ID)
		}
	}
}

func TestDashboardSelectsThreadByContactID(t *testing.T) {
	e, db := newTestEnv(t)
	contact, deal := seedContactWithDeal(t, db, models.ContactTypeClient, "+33611111114")

	msg := &models.Message{
		DealID:    deal.ID,
		ContactID: contact.ID,
		Direction: models.DirectionIn,
		Channel:   models.DefaultChannel,
		Content:   "Bonjour",
		SentAt:    deal.CreatedAt,
	}
	require.NoError(t, db.Create(msg).Error)

	req := httptest.NewRequest(http.MethodGet, "/?contact_id="+contact.ID.String(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Selected)
	assert.Equal(t, contact.ID, body.Selected.Contact.ID)
	require.Len(t, body.Selected.Messages, 1)
	assert.Equal(t, "Bonjour", body.Selected.Messages[0].Content)
}
