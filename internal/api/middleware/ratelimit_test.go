package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewRateLimiterInvalidPeriod(t *testing.T) {
	if _, err := NewRateLimiter(100, "bogus"); err == nil {
		t.Error("expected error for invalid period")
	}
}

func TestRateLimiterEnforcesLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limit, err := NewRateLimiter(2, "1m")
	if err != nil {
		t.Fatalf("NewRateLimiter() error: %v", err)
	}

	router := gin.New()
	router.Use(limit)
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var last int
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		router.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after exceeding limit, got %d", last)
	}
}
