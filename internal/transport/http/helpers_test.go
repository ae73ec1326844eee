package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/cache"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/plugins"
	"github.com/vovakirdan/wirechat-gateway/internal/service/follows"
	"github.com/vovakirdan/wirechat-gateway/internal/service/messaging"
	"github.com/vovakirdan/wirechat-gateway/internal/service/notifications"
	"github.com/vovakirdan/wirechat-gateway/internal/service/user"
	"github.com/vovakirdan/wirechat-gateway/internal/socket"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
)

type testServer struct {
	ts   *httptest.Server
	srv  *Server
	st   *sqlite.SQLiteStore
	auth *auth.Service
}

func startTestServer(t *testing.T, settings gateway.Settings) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := socket.NewHub(nil)
	go hub.Run(ctx)

	hooks := plugins.New()
	hooks.RegisterSendFilter("normalize", plugins.DefaultPriority, plugins.NormalizeLineEndings)

	notifs := notifications.New(st, hub, nil)
	users := user.New(st, st, notifs, nil)
	publicRooms := cache.New[[]int64](8, time.Minute)
	msgs := messaging.New(st, st, hub, users, notifs, publicRooms, messaging.Config{MaximumMessageLength: 200}, nil)

	gw := gateway.New(gateway.Deps{
		Messaging:     msgs,
		Users:         users,
		Notifications: notifs,
		DB:            st,
		Cache:         publicRooms,
		Sockets:       hub,
		Hooks:         hooks,
		Sessions:      gateway.NewSessions(64, time.Hour),
	}, settings, nil)
	t.Cleanup(gw.Wait)

	authSvc := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "wirechat",
		Audience: "wirechat-clients",
		TTL:      time.Hour,
	})

	cfg := config.Default()
	cfg.WS = config.WSConfig{MaxMessageBytes: 1 << 20, RateLimit: 100}
	srv := NewServer(Deps{Gateway: gw, Auth: authSvc, Hub: hub, Rooms: msgs, Follows: follows.New(st)}, cfg, nil)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, srv: srv, st: st, auth: authSvc}
}

// register creates a user and returns its id and token.
func (s *testServer) register(t *testing.T, username string, groups ...string) (int64, string) {
	t.Helper()
	ctx := context.Background()
	token, err := s.auth.Register(ctx, username, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	for _, g := range groups {
		if err := s.st.AddUserToGroup(ctx, claims.UID, g); err != nil {
			t.Fatalf("grant %s: %v", g, err)
		}
	}
	return claims.UID, token
}

func (s *testServer) admin(t *testing.T, username string) (int64, string) {
	t.Helper()
	return s.register(t, username, store.GroupAdministrators)
}

type request struct {
	method  string
	path    string
	token   string
	body    any
	session string
}

func (s *testServer) do(t *testing.T, r request) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	switch b := r.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(r.method, s.ts.URL+r.path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: r.session})
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", r.method, r.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}
