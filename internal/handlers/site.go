package handlers

import (
	"encoding/gob"
	"errors"
	"html/template"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"valles-rodes/internal/booking"
	"valles-rodes/internal/content"
	"valles-rodes/internal/models"
	"valles-rodes/internal/services"
)

const flashSession = "vr-flash"

func init() {
	gob.Register(FlashMessage{})
}

type FlashMessage struct {
	Type    string
	Message string
}

// Links are the contact URLs shown across the page.
type Links struct {
	Phone    string
	PhoneURL string
	WhatsApp string
}

func NewLinks(phone, whatsappText string) Links {
	return Links{
		Phone:    phone,
		PhoneURL: content.PhoneURL(phone),
		WhatsApp: content.WhatsAppURL(phone, whatsappText),
	}
}

type SiteHandler struct {
	templates *TemplateCache
	site      *content.Site
	bookings  *services.BookingService
	store     sessions.Store
	links     Links
	logger    *zap.Logger
	rnd       func() float64
	now       func() time.Time
}

func NewSiteHandler(
	templates *TemplateCache,
	site *content.Site,
	bookings *services.BookingService,
	store sessions.Store,
	links Links,
	logger *zap.Logger,
) *SiteHandler {
	return &SiteHandler{
		templates: templates,
		site:      site,
		bookings:  bookings,
		store:     store,
		links:     links,
		logger:    logger,
		rnd:       rand.Float64,
		now:       time.Now,
	}
}

// pageData is everything index.html renders.
type pageData struct {
	Site        *content.Site
	Hero        content.HeroVariant
	Links       Links
	CsrfField   template.HTML
	Flashes     []FlashMessage
	Form        models.BookingForm
	TireOptions []models.TireOption
	TireLabel   string
	Alert       string
	Year        int
}

func (h *SiteHandler) page(r *http.Request, form *booking.FormState) pageData {
	data := pageData{
		Site:        h.site,
		Hero:        h.site.SelectHeroVariant(r.URL.Query().Get("v"), h.rnd),
		Links:       h.links,
		CsrfField:   csrf.TemplateField(r),
		Form:        form.Fields(),
		TireOptions: form.TireOptions(),
		Year:        h.now().Year(),
	}
	if size := form.Size(); size != nil {
		data.TireLabel = booking.FormatTireSize(*size)
	}
	return data
}

// Home handles GET /.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, booking.NewFormState())

	session, _ := h.store.Get(r, flashSession)
	data.Flashes = getFlashes(session)
	// Save session to clear flashes
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save flash session", zap.Error(err))
	}

	h.templates.Render(w, http.StatusOK, "index.html", data)
}

// Book handles POST /reserva. A rejected window re-renders the page with the
// alert and the submitted values; an accepted booking redirects back with a
// flash message.
func (h *SiteHandler) Book(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := booking.FormStateFromValues(r.PostForm)
	req, err := h.bookings.Submit(r.Context(), form)

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		data := h.page(r, form)
		data.Alert = verr.Fields[booking.FieldEnd]
		h.templates.Render(w, http.StatusUnprocessableEntity, "index.html", data)
		return
	}
	if err != nil {
		h.logger.Error("booking submission failed", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("booking accepted",
		zap.String("booking_id", req.ID.String()),
		zap.String("service", req.Form.Service))

	session, _ := h.store.Get(r, flashSession)
	session.AddFlash(FlashMessage{Type: "success", Message: form.Message()})
	if err := session.Save(r, w); err != nil {
		h.logger.Error("failed to save flash session", zap.Error(err))
	}
	http.Redirect(w, r, "/#reserva", http.StatusSeeOther)
}

func getFlashes(session *sessions.Session) []FlashMessage {
	var messages []FlashMessage
	for _, f := range session.Flashes() {
		if fm, ok := f.(FlashMessage); ok {
			messages = append(messages, fm)
		}
	}
	return messages
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
