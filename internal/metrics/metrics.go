package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat widget sessions by the state they opened into
	ChatSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "chat",
		Name:      "sessions_opened_total",
		Help:      "Chat sessions opened, by resulting state",
	}, []string{"state"}) // idle / unavailable

	ChatExchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "chat",
		Name:      "exchanges_total",
		Help:      "Completed chat exchanges, by result",
	}, []string{"result"}) // ok / error

	ChatFragmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "chat",
		Name:      "fragments_skipped_total",
		Help:      "Streamed fragments that could not be decoded",
	})

	ChatRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "chat",
		Name:      "messages_rejected_total",
		Help:      "User messages refused before reaching the transcript",
	}, []string{"reason"})

	TireQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "booking",
		Name:      "tire_quotes_total",
		Help:      "Tire option lookups, by whether a quote was produced",
	}, []string{"result"}) // quoted / empty

	BookingSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "booking",
		Name:      "submissions_total",
		Help:      "Booking form submissions, by outcome",
	}, []string{"result"}) // accepted / short_window

	BookingRelayTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vallesrodes",
		Subsystem: "booking",
		Name:      "relay_total",
		Help:      "Booking notifications handled by the relay workers",
	}, []string{"status"}) // enqueued / enqueue_failed / sent / retry / failed

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vallesrodes",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
)

func ObserveRequest(t time.Duration, status int) {
	RequestDuration.WithLabelValues(strconv.Itoa(status)).Observe(t.Seconds())
}
