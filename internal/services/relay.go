package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"valles-rodes/internal/metrics"
	"valles-rodes/internal/models"
)

const (
	// BookingQueue is the Redis list accepted bookings are pushed on.
	BookingQueue = "queue:booking-requests"
	// BookingRetryQueue is a sorted set of bookings waiting for another
	// delivery attempt, scored by the unix millisecond they become due.
	BookingRetryQueue = "queue:booking-requests:retry"
)

// BookingRelay hands accepted bookings to the notification workers.
type BookingRelay struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewBookingRelay(redisClient *redis.Client, logger *zap.Logger) *BookingRelay {
	return &BookingRelay{redis: redisClient, logger: logger}
}

func (r *BookingRelay) Enqueue(ctx context.Context, req models.BookingRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}
	if err := r.redis.LPush(ctx, BookingQueue, data).Err(); err != nil {
		metrics.BookingRelayTotal.WithLabelValues("enqueue_failed").Inc()
		return fmt.Errorf("failed to enqueue booking: %w", err)
	}
	metrics.BookingRelayTotal.WithLabelValues("enqueued").Inc()
	r.logger.Info("booking enqueued", zap.String("booking_id", req.ID.String()))
	return nil
}
