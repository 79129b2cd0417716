// Package worker delivers relayed bookings to the workshop.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"valles-rodes/internal/metrics"
	"valles-rodes/internal/models"
	"valles-rodes/internal/services"
)

const (
	maxAttempts = 3
	lockTTL     = 5 * time.Minute
)

// Notifier delivers one booking notification.
type Notifier interface {
	SendBookingNotification(req models.BookingRequest) error
}

type Pool struct {
	redis       *redis.Client
	notifier    Notifier
	logger      *zap.Logger
	workerCount int
	stopChan    chan struct{}
	done        chan struct{}

	// BLPOP timeout, so Stop is noticed
	pollTimeout time.Duration
	// pause after a Redis error before polling again
	errorPause time.Duration
	now        func() time.Time
}

func NewPool(redisClient *redis.Client, notifier Notifier, workerCount int, logger *zap.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		notifier:    notifier,
		logger:      logger,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		pollTimeout: 5 * time.Second,
		errorPause:  time.Second,
		now:         time.Now,
	}
}

func (p *Pool) Start() {
	finished := make(chan struct{}, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go func(id int) {
			p.worker(id)
			finished <- struct{}{}
		}(i)
	}
	go func() {
		for i := 0; i < p.workerCount; i++ {
			<-finished
		}
		close(p.done)
	}()

	p.logger.Info("booking workers started", zap.Int("count", p.workerCount))
}

// Stop signals the workers and waits for them, or for ctx. Bookings waiting
// for a retry stay in Redis for the next start.
func (p *Pool) Stop(ctx context.Context) error {
	close(p.stopChan)
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	log := p.logger.With(zap.Int("worker", id))
	for {
		select {
		case <-p.stopChan:
			log.Info("worker shutting down")
			return
		default:
		}

		ctx := context.Background()

		if err := p.promoteDue(ctx); err != nil {
			log.Warn("failed to promote retries", zap.Error(err))
		}

		result, err := p.redis.BLPop(ctx, p.pollTimeout, services.BookingQueue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.Warn("booking queue unavailable", zap.Error(err))
			p.pause()
			continue
		}
		if len(result) < 2 {
			continue
		}

		p.deliver(ctx, log, result[1])
	}
}

func (p *Pool) pause() {
	select {
	case <-p.stopChan:
	case <-time.After(p.errorPause):
	}
}

// deliver sends one queued booking. The SetNX lock keeps two workers from
// notifying the same booking.
func (p *Pool) deliver(ctx context.Context, log *zap.Logger, raw string) {
	req, err := decodeBooking(raw)
	if err != nil {
		log.Error("failed to parse booking", zap.Error(err))
		return
	}

	lockKey := fmt.Sprintf("booking_lock:%s", req.ID.String())
	locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil || !locked {
		return
	}
	defer p.redis.Del(ctx, lockKey)

	log.Info("delivering booking",
		zap.String("booking_id", req.ID.String()),
		zap.Int("attempt", req.RetryCount+1))

	if err := p.notifier.SendBookingNotification(req); err != nil {
		p.handleFailure(ctx, req, err)
		return
	}
	metrics.BookingRelayTotal.WithLabelValues("sent").Inc()
}

func decodeBooking(raw string) (models.BookingRequest, error) {
	var req models.BookingRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return req, err
	}
	return req, nil
}

// backoff is the delay before re-queueing after the given failed attempt.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func (p *Pool) handleFailure(ctx context.Context, req models.BookingRequest, err error) {
	req.RetryCount++

	if req.RetryCount >= maxAttempts {
		metrics.BookingRelayTotal.WithLabelValues("failed").Inc()
		p.logger.Error("booking notification failed permanently",
			zap.String("booking_id", req.ID.String()),
			zap.Error(err))
		return
	}

	metrics.BookingRelayTotal.WithLabelValues("retry").Inc()
	p.logger.Warn("booking notification failed, retrying",
		zap.String("booking_id", req.ID.String()),
		zap.Int("attempt", req.RetryCount),
		zap.Error(err))

	data, _ := json.Marshal(req)
	due := p.now().Add(backoff(req.RetryCount))
	if err := p.redis.ZAdd(ctx, services.BookingRetryQueue, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: string(data),
	}).Err(); err != nil {
		p.logger.Error("failed to schedule booking retry",
			zap.String("booking_id", req.ID.String()),
			zap.Error(err))
	}
}

// promoteDue moves retries whose backoff has elapsed back onto the queue.
// ZRem decides which worker gets to push a given entry.
func (p *Pool) promoteDue(ctx context.Context) error {
	due, err := p.redis.ZRangeByScore(ctx, services.BookingRetryQueue, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(p.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range due {
		removed, err := p.redis.ZRem(ctx, services.BookingRetryQueue, member).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := p.redis.LPush(ctx, services.BookingQueue, member).Err(); err != nil {
			return err
		}
	}
	return nil
}
