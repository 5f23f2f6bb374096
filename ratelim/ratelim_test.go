package ratelim

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestLimitSharesBucketAcrossPorts(t *testing.T) {
	rl := NewRateLimiter()
	handler := rl.Limit(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})

	// exhaust the burst from one host, each request on a new port
	limited := false
	for port := 0; port < 40; port++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.RemoteAddr = "10.0.0.7:" + strconv.Itoa(40000+port)
		rec := httptest.NewRecorder()
		handler(rec, req, nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("per-connection ports each got a fresh bucket")
	}

	// a different host is unaffected
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.RemoteAddr = "10.0.0.8:40000"
	rec := httptest.NewRecorder()
	handler(rec, req, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("other host: %d, want 200", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	if got := clientIP("10.0.0.7:54321"); got != "10.0.0.7" {
		t.Errorf("clientIP = %q", got)
	}
	if got := clientIP("[::1]:8080"); got != "::1" {
		t.Errorf("ipv6 clientIP = %q", got)
	}
	if got := clientIP("no-port"); got != "no-port" {
		t.Errorf("fallback clientIP = %q", got)
	}
}
