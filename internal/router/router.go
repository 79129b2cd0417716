package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"valles-rodes/internal/handlers"
	"valles-rodes/internal/middleware"
	"valles-rodes/internal/websocket"
)

type Options struct {
	CSRFKey        []byte
	CookieSecure   bool
	TrustedOrigins []string
	AllowedOrigins string
	StaticDir      string
}

func New(
	opts Options,
	siteHandler *handlers.SiteHandler,
	bookingAPI *handlers.BookingAPIHandler,
	chatGateway *websocket.Gateway,
	bookingLimiter *middleware.RateLimiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Tracing("valles-rodes"))

	// Health check
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fs.ServeHTTP(w, r)
	})

	// ──── Page (CSRF protected) ────
	protect := csrf.Protect(
		opts.CSRFKey,
		csrf.Secure(opts.CookieSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins(opts.TrustedOrigins),
	)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		if !opts.CookieSecure {
			r.Use(plaintextHTTP)
		}
		r.Use(protect)

		r.Get("/", siteHandler.Home)
		r.With(bookingLimiter.Limit(http.HandlerFunc(handlers.RateLimited))).Post("/reserva", siteHandler.Book)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(opts.AllowedOrigins))

		r.Get("/tires/options", bookingAPI.TireOptions)
		r.Post("/bookings/validate-window", bookingAPI.ValidateWindow)

		// ──── WebSocket ────
		r.Get("/chat/ws", chatGateway.HandleWebSocket)
	})

	return r
}

// plaintextHTTP tells the CSRF check that the request came over plain HTTP,
// so the Referer is not required to be https. Only used when cookies are not
// marked secure, i.e. local development.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// BookingLimiter is the per-IP limit shared by the booking endpoints.
func BookingLimiter(perMinute int) *middleware.RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return middleware.NewRateLimiter(perMinute, time.Minute)
}
