package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etutor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etutor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etutor_bookings_created_total",
		Help: "Pending bookings created",
	})
	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etutor_bookings_confirmed_total",
		Help: "Bookings moved to CONFIRMED after payment",
	})
	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etutor_booking_conflicts_total",
			Help: "Slot conflicts detected, by stage (create, confirm, recurring)",
		},
		[]string{"stage"},
	)
	SessionsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etutor_sessions_scheduled_total",
		Help: "Recurring lesson sessions persisted",
	})
)

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()
		statusCode := c.Response().StatusCode()

		if err != nil {
			var e *fiber.Error
			if errors.As(err, &e) {
				statusCode = e.Code
			} else {
				statusCode = fiber.StatusInternalServerError
			}
		}

		// Route template keeps label cardinality bounded.
		path := c.Route().Path
		status := strconv.Itoa(statusCode)

		httpRequestTotal.WithLabelValues(c.Method(), path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path, status).Observe(duration)

		return err
	}
}
