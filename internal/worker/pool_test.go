package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"valles-rodes/internal/models"
	"valles-rodes/internal/services"
)

type stubNotifier struct {
	mu   sync.Mutex
	err  error
	sent []models.BookingRequest
	ch   chan models.BookingRequest
}

func (n *stubNotifier) SendBookingNotification(req models.BookingRequest) error {
	n.mu.Lock()
	n.sent = append(n.sent, req)
	err := n.err
	n.mu.Unlock()
	if n.ch != nil {
		n.ch <- req
	}
	return err
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var fixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestPool(t *testing.T, notifier Notifier) (*Pool, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := NewPool(client, notifier, 1, zap.NewNop())
	p.now = func() time.Time { return fixedNow }
	return p, mr, client
}

func encode(t *testing.T, req models.BookingRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return string(data)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(2))
}

func TestDecodeBooking(t *testing.T) {
	id := uuid.New()
	req, err := decodeBooking(`{"id":"` + id.String() + `","form":{"name":"Marta","service":"neumaticos"},"retry_count":1}`)
	require.NoError(t, err)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, "Marta", req.Form.Name)
	assert.Equal(t, 1, req.RetryCount)

	_, err = decodeBooking("not json")
	assert.Error(t, err)
}

func TestDeliver_Sends(t *testing.T) {
	notifier := &stubNotifier{}
	p, mr, _ := newTestPool(t, notifier)
	req := models.BookingRequest{ID: uuid.New(), Form: models.BookingForm{Name: "Marta"}}

	p.deliver(context.Background(), p.logger, encode(t, req))

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, req.ID, notifier.sent[0].ID)
	assert.False(t, mr.Exists("booking_lock:"+req.ID.String()), "lock released")
	assert.False(t, mr.Exists(services.BookingRetryQueue))
}

func TestDeliver_SkipsLockedBooking(t *testing.T) {
	notifier := &stubNotifier{}
	p, mr, _ := newTestPool(t, notifier)
	req := models.BookingRequest{ID: uuid.New()}
	require.NoError(t, mr.Set("booking_lock:"+req.ID.String(), "1"))

	p.deliver(context.Background(), p.logger, encode(t, req))

	assert.Equal(t, 0, notifier.count())
}

func TestDeliver_IgnoresGarbage(t *testing.T) {
	notifier := &stubNotifier{}
	p, _, _ := newTestPool(t, notifier)

	p.deliver(context.Background(), p.logger, "{")

	assert.Equal(t, 0, notifier.count())
}

func TestDeliver_SchedulesRetry(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("smtp: connection refused")}
	p, _, client := newTestPool(t, notifier)
	ctx := context.Background()
	req := models.BookingRequest{ID: uuid.New()}

	p.deliver(ctx, p.logger, encode(t, req))

	retries, err := client.ZRangeWithScores(ctx, services.BookingRetryQueue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, retries, 1)
	assert.Equal(t, float64(fixedNow.Add(2*time.Second).UnixMilli()), retries[0].Score)

	queued, err := decodeBooking(retries[0].Member.(string))
	require.NoError(t, err)
	assert.Equal(t, req.ID, queued.ID)
	assert.Equal(t, 1, queued.RetryCount)

	n, err := client.LLen(ctx, services.BookingQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "not re-queued before the backoff")
}

func TestDeliver_GivesUpAfterLastAttempt(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("smtp: connection refused")}
	p, mr, _ := newTestPool(t, notifier)
	req := models.BookingRequest{ID: uuid.New(), RetryCount: maxAttempts - 1}

	p.deliver(context.Background(), p.logger, encode(t, req))

	assert.Equal(t, 1, notifier.count())
	assert.False(t, mr.Exists(services.BookingRetryQueue))
	assert.False(t, mr.Exists(services.BookingQueue))
}

func TestPromoteDue(t *testing.T) {
	p, _, client := newTestPool(t, &stubNotifier{})
	ctx := context.Background()

	require.NoError(t, client.ZAdd(ctx, services.BookingRetryQueue,
		redis.Z{Score: float64(fixedNow.Add(-time.Second).UnixMilli()), Member: "due"},
		redis.Z{Score: float64(fixedNow.Add(time.Minute).UnixMilli()), Member: "later"},
	).Err())

	require.NoError(t, p.promoteDue(ctx))

	queued, err := client.LRange(ctx, services.BookingQueue, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"due"}, queued)

	waiting, err := client.ZRange(ctx, services.BookingRetryQueue, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"later"}, waiting)
}

func TestPool_DeliversQueuedBooking(t *testing.T) {
	notifier := &stubNotifier{ch: make(chan models.BookingRequest, 1)}
	p, _, client := newTestPool(t, notifier)
	p.pollTimeout = 100 * time.Millisecond
	req := models.BookingRequest{ID: uuid.New()}

	require.NoError(t, client.LPush(context.Background(), services.BookingQueue, encode(t, req)).Err())
	p.Start()

	select {
	case got := <-notifier.ch:
		assert.Equal(t, req.ID, got.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("booking was not delivered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}

func TestPool_StopsWhileRedisIsDown(t *testing.T) {
	p, mr, _ := newTestPool(t, &stubNotifier{})
	p.pollTimeout = 100 * time.Millisecond
	p.errorPause = time.Hour
	mr.Close()

	p.Start()
	time.Sleep(50 * time.Millisecond)

	// the error pause must not hold up shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}
