package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTimesheetDecision(t *testing.T) {
	before := testutil.ToFloat64(TimesheetDecisionsCounter.With(prometheus.Labels{"decision": "approved"}))
	RecordTimesheetDecision(true)
	after := testutil.ToFloat64(TimesheetDecisionsCounter.With(prometheus.Labels{"decision": "approved"}))
	if after != before+1 {
		t.Errorf("expected approved counter to increment, got %v -> %v", before, after)
	}

	before = testutil.ToFloat64(TimesheetDecisionsCounter.With(prometheus.Labels{"decision": "rejected"}))
	RecordTimesheetDecision(false)
	after = testutil.ToFloat64(TimesheetDecisionsCounter.With(prometheus.Labels{"decision": "rejected"}))
	if after != before+1 {
		t.Errorf("expected rejected counter to increment, got %v -> %v", before, after)
	}
}

func TestSetActiveSeats(t *testing.T) {
	SetActiveSeats("test-org", 7)
	got := testutil.ToFloat64(ActiveSeatsGauge.With(prometheus.Labels{"org": "test-org"}))
	if got != 7 {
		t.Errorf("expected gauge 7, got %v", got)
	}

	SetActiveSeats("test-org", 3)
	got = testutil.ToFloat64(ActiveSeatsGauge.With(prometheus.Labels{"org": "test-org"}))
	if got != 3 {
		t.Errorf("expected gauge 3, got %v", got)
	}
}

func TestMiddlewareCountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	before := testutil.ToFloat64(APIErrorCounter.With(prometheus.Labels{
		"method": "GET", "path": "/boom", "status": "500",
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(APIErrorCounter.With(prometheus.Labels{
		"method": "GET", "path": "/boom", "status": "500",
	}))
	if after != before+1 {
		t.Errorf("expected error counter to increment, got %v -> %v", before, after)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", Handler())

	SetActiveSeats("handler-org", 2)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
