package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"valles-rodes/internal/booking"
	"valles-rodes/internal/metrics"
	"valles-rodes/internal/models"
)

// Enqueuer accepts a booking for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, req models.BookingRequest) error
}

type BookingService struct {
	relay  Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewBookingService builds the service. relay may be nil, in which case
// accepted bookings only produce the confirmation message.
func NewBookingService(relay Enqueuer, logger *zap.Logger) *BookingService {
	return &BookingService{relay: relay, logger: logger, now: time.Now}
}

// Quote returns the tire options for a service and free-text size.
func (s *BookingService) Quote(service, sizeText string) models.TireOptionsResponse {
	resp := models.TireOptionsResponse{Options: booking.TireOptions(service, sizeText)}
	if size, ok := booking.ParseTireSize(sizeText); ok {
		resp.Size = &size
		resp.Label = booking.FormatTireSize(size)
	}
	if resp.Options == nil {
		resp.Options = []models.TireOption{}
		metrics.TireQuotesTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.TireQuotesTotal.WithLabelValues("quoted").Inc()
	}
	return resp
}

// CheckWindow is the pre-submit window check. A short window is a
// ValidationError keyed on the end field, as in Submit.
func (s *BookingService) CheckWindow(req models.WindowRequest) error {
	if booking.ValidWindow(req.Start, req.End) {
		return nil
	}
	return &ValidationError{Fields: map[string]string{booking.FieldEnd: booking.WindowTooShortMessage}}
}

// Submit runs the form's submission check. A rejected window comes back as a
// ValidationError keyed on the end field. Relay failures are logged only; the
// customer still gets the confirmation.
func (s *BookingService) Submit(ctx context.Context, form *booking.FormState) (*models.BookingRequest, error) {
	if alert, ok := form.Submit(); !ok {
		metrics.BookingSubmissionsTotal.WithLabelValues("short_window").Inc()
		return nil, &ValidationError{Fields: map[string]string{booking.FieldEnd: alert}}
	}
	metrics.BookingSubmissionsTotal.WithLabelValues("accepted").Inc()

	req := &models.BookingRequest{
		ID:          uuid.New(),
		Form:        form.Fields(),
		TireOptions: form.TireOptions(),
		SubmittedAt: s.now().UTC(),
	}

	if s.relay != nil {
		if err := s.relay.Enqueue(ctx, *req); err != nil {
			s.logger.Error("booking relay failed",
				zap.String("booking_id", req.ID.String()),
				zap.Error(err))
		}
	}
	return req, nil
}
