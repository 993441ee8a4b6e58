// Package metrics exposes Prometheus metrics for the Crewdeck server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crewdeck"

var (
	// Seat metrics
	SeatAllocationsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seat_allocations_total",
		Help:      "Total number of seat allocations",
	})

	SeatReleasesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seat_releases_total",
		Help:      "Total number of seat releases",
	})

	ActiveSeatsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_seats",
			Help:      "Number of currently occupied seats per organization",
		},
		[]string{"org"},
	)

	// Invite metrics
	InvitesCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_created_total",
		Help:      "Total number of invitations created",
	})

	InvitesResentCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_resent_total",
		Help:      "Total number of invitation resends",
	})

	InvitesAcceptedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_accepted_total",
		Help:      "Total number of invitations accepted",
	})

	InvitesExpiredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_expired_total",
		Help:      "Total number of invitations swept to expired",
	})

	// Timesheet metrics
	TimesheetDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timesheet_decisions_total",
			Help:      "Total number of timesheet approval decisions",
		},
		[]string{"decision"},
	)

	// Request metrics
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	APIErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API error responses",
		},
		[]string{"method", "path", "status"},
	)
)

// Middleware tracks request count, duration and errors per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		APIRequestCounter.With(prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
		}).Inc()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		RequestDurationHistogram.With(prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
			"status": status,
		}).Observe(time.Since(start).Seconds())

		if c.Writer.Status() >= 400 {
			APIErrorCounter.With(prometheus.Labels{
				"method": c.Request.Method,
				"path":   path,
				"status": status,
			}).Inc()
		}
	}
}

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordTimesheetDecision increments the decision counter.
func RecordTimesheetDecision(approved bool) {
	decision := "approved"
	if !approved {
		decision = "rejected"
	}
	TimesheetDecisionsCounter.With(prometheus.Labels{"decision": decision}).Inc()
}

// SetActiveSeats records the occupied seat count for an organization.
func SetActiveSeats(orgSlug string, active int) {
	ActiveSeatsGauge.With(prometheus.Labels{"org": orgSlug}).Set(float64(active))
}
