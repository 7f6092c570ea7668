package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"helixrecruit/internal/app"
	"helixrecruit/pkg/broadcast"
	"helixrecruit/pkg/store"
)

func TestLoginRateLimited(t *testing.T) {
	appCore, err := app.New(app.Config{
		JWTSecret: "test-secret",
		Store:     store.NewMemoryStore(),
		Generator: &stubGenerator{reply: "hello"},
		Broker:    broadcast.NewMemoryBroker(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	redisSrv := miniredis.RunT(t)
	srv, err := New(Config{
		App:                     appCore,
		RedisAddr:               redisSrv.Addr(),
		LoginRateLimitPerMinute: 2,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	login := func() *http.Response {
		resp, _ := postJSON(t, ts.URL+"/api/auth/login", map[string]string{
			"email":    "nobody@example.com",
			"password": "wrong",
		}, "")
		return resp
	}

	if resp := login(); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("first attempt expected 400, got %d", resp.StatusCode)
	}
	if resp := login(); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second attempt expected 400, got %d", resp.StatusCode)
	}
	resp := login()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third attempt expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After header, got %q", resp.Header.Get("Retry-After"))
	}
}

func TestRateLimiterFailsClosed(t *testing.T) {
	appCore, err := app.New(app.Config{
		JWTSecret: "test-secret",
		Store:     store.NewMemoryStore(),
		Generator: &stubGenerator{reply: "hello"},
		Broker:    broadcast.NewMemoryBroker(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	redisSrv := miniredis.RunT(t)
	srv, err := New(Config{
		App:       appCore,
		RedisAddr: redisSrv.Addr(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	redisSrv.Close()
	resp, _ := postJSON(t, ts.URL+"/api/auth/signup", signupBody(), "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected fail-closed 429, got %d", resp.StatusCode)
	}
}
