package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

type fakeRateLimiter struct {
	hits map[string]int
	err  error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.hits[key]++
	remaining := limit - f.hits[key]
	if remaining < 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeRateLimiter{hits: map[string]int{}}
	m := NewRateLimitMiddleware(limiter, 2, time.Minute, logger.NewNop())

	r := gin.New()
	r.GET("/ping", func(c *gin.Context) { c.Set("user_id", "founder-1") }, m.Limit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: status = %d, want %d", i+1, codes[i], want[i])
		}
	}
	if limiter.hits["user:founder-1"] != 3 {
		t.Errorf("hits keyed by user = %d, want 3", limiter.hits["user:founder-1"])
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &fakeRateLimiter{err: fmt.Errorf("redis down")}
	m := NewRateLimitMiddleware(limiter, 1, time.Minute, logger.NewNop())

	r := gin.New()
	r.GET("/ping", m.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the limiter is unavailable", w.Code)
	}
}

func TestErrorHandlerMapsSentinels(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(apperrors.ErrDealRoomNotFound) })
	r.GET("/written", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrDealRoomNotFound)
		c.Status(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want the handler's 202", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin got Allow-Origin = %q", got)
	}
}
