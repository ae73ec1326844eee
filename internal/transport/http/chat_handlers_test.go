package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
)

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})

	resp, _ := s.do(t, request{method: http.MethodGet, path: "/health"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})

	resp, raw := s.do(t, request{method: http.MethodPost, path: "/api/register", body: RegisterRequest{Username: "alice", Password: "secret123"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", resp.StatusCode, raw)
	}
	if decode[AuthResponse](t, raw).Token == "" {
		t.Fatalf("expected token")
	}

	resp, _ = s.do(t, request{method: http.MethodPost, path: "/api/register", body: RegisterRequest{Username: "alice", Password: "secret123"}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status %d", resp.StatusCode)
	}

	resp, raw = s.do(t, request{method: http.MethodPost, path: "/api/login", body: LoginRequest{Username: "alice", Password: "secret123"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.StatusCode, raw)
	}

	resp, raw = s.do(t, request{method: http.MethodPost, path: "/api/login", body: LoginRequest{Username: "alice", Password: "wrong-password"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", resp.StatusCode)
	}
	if got := decode[ErrorResponse](t, raw).Code; got != core.ErrCodeInvalidCredentials {
		t.Fatalf("code = %q", got)
	}
}

func TestChatRoutesRequireToken(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})

	resp, _ := s.do(t, request{method: http.MethodGet, path: "/api/v3/chats?start=0&stop=9"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, request{method: http.MethodGet, path: "/api/v3/chats?start=0&stop=9", token: "garbage"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d", resp.StatusCode)
	}
}

func TestCreatePostListGet(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, tokenA := s.register(t, "alice")
	uidB, tokenB := s.register(t, "bobby")

	resp, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: tokenA, body: map[string]any{"uids": []int64{uidB}}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status %d: %s", resp.StatusCode, raw)
	}
	room := decode[core.Room](t, raw)
	if room.RoomID == 0 || room.Public || room.UserCount != 2 {
		t.Fatalf("unexpected room %+v", room)
	}

	path := fmt.Sprintf("/api/v3/chats/%d", room.RoomID)
	resp, raw = s.do(t, request{method: http.MethodPost, path: path, token: tokenA, body: map[string]any{"message": "hello bobby"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status %d: %s", resp.StatusCode, raw)
	}
	if msg := decode[core.Message](t, raw); msg.Content != "hello bobby" || msg.RoomID != room.RoomID {
		t.Fatalf("unexpected message %+v", msg)
	}

	resp, raw = s.do(t, request{method: http.MethodGet, path: "/api/v3/chats?page=1&perPage=10", token: tokenB})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", resp.StatusCode, raw)
	}
	chats := decode[core.RecentChats](t, raw)
	if len(chats.Rooms) != 1 || chats.Rooms[0].RoomID != room.RoomID {
		t.Fatalf("unexpected chats %+v", chats)
	}

	resp, raw = s.do(t, request{method: http.MethodGet, path: path, token: tokenB})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", resp.StatusCode, raw)
	}
	view := decode[core.RoomView](t, raw)
	if len(view.Users) != 2 || len(view.Messages) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	resp, raw = s.do(t, request{method: http.MethodGet, path: path + "/messages?limit=5", token: tokenB})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("messages status %d: %s", resp.StatusCode, raw)
	}
	if page := decode[struct{ Messages []core.Message }](t, raw); len(page.Messages) != 1 {
		t.Fatalf("unexpected messages %+v", page)
	}
}

func TestListWithoutRangeIsInvalid(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, token := s.register(t, "alice")

	resp, raw := s.do(t, request{method: http.MethodGet, path: "/api/v3/chats", token: token})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", resp.StatusCode, raw)
	}
	if got := decode[ErrorResponse](t, raw).Code; got != core.ErrCodeInvalidData {
		t.Fatalf("code = %q", got)
	}

	resp, raw = s.do(t, request{method: http.MethodGet, path: "/api/v3/chats?start=a&stop=1", token: token})
	if got := decode[ErrorResponse](t, raw).Code; resp.StatusCode != http.StatusBadRequest || got != core.ErrCodeWrongParameterType {
		t.Fatalf("status %d code %q", resp.StatusCode, got)
	}
}

func TestCreateRejectsWrongParameterType(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, token := s.register(t, "alice")

	resp, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: token, body: `{"uids":"everyone"}`})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", resp.StatusCode, raw)
	}
	if got := decode[ErrorResponse](t, raw).Code; got != core.ErrCodeWrongParameterType {
		t.Fatalf("code = %q", got)
	}
}

func TestCreatePublicRoomNeedsAdmin(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, token := s.register(t, "alice")

	resp, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: token, body: map[string]any{"type": "public", "groups": []string{"registered-users"}}})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d: %s", resp.StatusCode, raw)
	}
	if got := decode[ErrorResponse](t, raw).Code; got != core.ErrCodeNoPrivileges {
		t.Fatalf("code = %q", got)
	}
}

func TestSortPublicRooms(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, adminToken := s.admin(t, "admin")
	_, userToken := s.register(t, "alice")

	var ids []int64
	for _, name := range []string{"first", "second"} {
		resp, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: adminToken, body: map[string]any{
			"type": "public", "roomName": name, "uids": []int64{}, "groups": []string{"registered-users"},
		}})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("create %s status %d: %s", name, resp.StatusCode, raw)
		}
		ids = append(ids, decode[core.Room](t, raw).RoomID)
	}

	resp, raw := s.do(t, request{method: http.MethodPut, path: "/api/v3/chats/sort", token: adminToken, body: `{"roomIds":"x"}`})
	if got := decode[ErrorResponse](t, raw).Code; resp.StatusCode != http.StatusBadRequest || got != core.ErrCodeInvalidData {
		t.Fatalf("status %d code %q", resp.StatusCode, got)
	}

	sort := map[string]any{"roomIds": []int64{ids[0], ids[1]}, "scores": []float64{2, 1}}
	resp, _ = s.do(t, request{method: http.MethodPut, path: "/api/v3/chats/sort", token: userToken, body: sort})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin sort status %d", resp.StatusCode)
	}
	resp, raw = s.do(t, request{method: http.MethodPut, path: "/api/v3/chats/sort", token: adminToken, body: sort})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sort status %d: %s", resp.StatusCode, raw)
	}

	resp, raw = s.do(t, request{method: http.MethodGet, path: "/api/v3/chats/public", token: userToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public status %d: %s", resp.StatusCode, raw)
	}
	rooms := decode[struct{ Rooms []core.Room }](t, raw).Rooms
	if len(rooms) != 2 || rooms[0].RoomID != ids[1] || rooms[1].RoomID != ids[0] {
		t.Fatalf("unexpected order %+v", rooms)
	}
}

func TestUpdateRenameAndNullName(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, token := s.register(t, "alice")
	uidB, _ := s.register(t, "bobby")

	_, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: token, body: map[string]any{"uids": []int64{uidB}}})
	room := decode[core.Room](t, raw)
	path := fmt.Sprintf("/api/v3/chats/%d", room.RoomID)

	resp, raw := s.do(t, request{method: http.MethodPatch, path: path, token: token, body: map[string]any{"name": "plans"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", resp.StatusCode, raw)
	}
	if view := decode[core.RoomView](t, raw); view.RoomName != "plans" {
		t.Fatalf("room name = %q", view.RoomName)
	}

	resp, raw = s.do(t, request{method: http.MethodPatch, path: path, token: token, body: `{"name":null}`})
	if got := decode[ErrorResponse](t, raw).Code; resp.StatusCode != http.StatusBadRequest || got != core.ErrCodeInvalidData {
		t.Fatalf("status %d code %q", resp.StatusCode, got)
	}

	resp, raw = s.do(t, request{method: http.MethodPut, path: path, token: token, body: map[string]any{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("rename without name status %d: %s", resp.StatusCode, raw)
	}
}

func TestMarkWatchAndMembers(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, tokenA := s.register(t, "alice")
	uidB, tokenB := s.register(t, "bobby")
	_, tokenC := s.register(t, "carol")

	_, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: tokenA, body: map[string]any{"uids": []int64{uidB}}})
	room := decode[core.Room](t, raw)
	path := fmt.Sprintf("/api/v3/chats/%d", room.RoomID)

	resp, _ := s.do(t, request{method: http.MethodPut, path: path + "/state", token: tokenB})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark unread status %d", resp.StatusCode)
	}
	_, raw = s.do(t, request{method: http.MethodGet, path: "/api/v3/chats/unread", token: tokenB})
	if got := decode[gateway.UnreadResponse](t, raw).Count; got != 1 {
		t.Fatalf("unread = %d", got)
	}
	resp, _ = s.do(t, request{method: http.MethodDelete, path: path + "/state", token: tokenB})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read status %d", resp.StatusCode)
	}
	_, raw = s.do(t, request{method: http.MethodGet, path: "/api/v3/chats/unread", token: tokenB})
	if got := decode[gateway.UnreadResponse](t, raw).Count; got != 0 {
		t.Fatalf("unread after read = %d", got)
	}

	resp, _ = s.do(t, request{method: http.MethodPut, path: path + "/watch", token: tokenB, body: map[string]any{"state": int(core.NotificationNone)}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("watch status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, request{method: http.MethodPut, path: path + "/watch", token: tokenB, body: map[string]any{"state": 9}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid watch status %d", resp.StatusCode)
	}

	resp, raw = s.do(t, request{method: http.MethodGet, path: path + "/users", token: tokenA})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("members status %d: %s", resp.StatusCode, raw)
	}
	if members := decode[gateway.MembersResponse](t, raw).Members; len(members) != 2 {
		t.Fatalf("members = %+v", members)
	}
	resp, _ = s.do(t, request{method: http.MethodGet, path: path + "/users", token: tokenC})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("outsider members status %d", resp.StatusCode)
	}
}

func TestJoinLeaveAndDelete(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, adminToken := s.admin(t, "admin")
	_, token := s.register(t, "alice")

	_, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: adminToken, body: map[string]any{
		"type": "public", "roomName": "lobby", "uids": []int64{}, "groups": []string{"registered-users"},
	}})
	room := decode[core.Room](t, raw)
	path := fmt.Sprintf("/api/v3/chats/%d", room.RoomID)

	resp, raw := s.do(t, request{method: http.MethodPost, path: path + "/users", token: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status %d: %s", resp.StatusCode, raw)
	}
	_, raw = s.do(t, request{method: http.MethodGet, path: path + "/raw", token: token})
	if got := decode[core.Room](t, raw); got.UserCount != 2 {
		t.Fatalf("user count after join = %d", got.UserCount)
	}
	resp, _ = s.do(t, request{method: http.MethodDelete, path: path + "/users", token: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leave status %d", resp.StatusCode)
	}

	resp, _ = s.do(t, request{method: http.MethodDelete, path: path, token: token})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin delete status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, request{method: http.MethodDelete, path: path, token: adminToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, raw = s.do(t, request{method: http.MethodGet, path: path + "/raw", token: adminToken})
	if got := decode[ErrorResponse](t, raw).Code; resp.StatusCode != http.StatusBadRequest || got != core.ErrCodeInvalidData {
		t.Fatalf("raw after delete status %d code %q", resp.StatusCode, got)
	}
}

func TestPostRateLimitedPerLoginSession(t *testing.T) {
	s := startTestServer(t, gateway.Settings{
		NewbieReputationThreshold: 3,
		ChatMessageDelay:          time.Hour,
		NewbieChatMessageDelay:    time.Hour,
	})
	_, token := s.register(t, "alice")
	uidB, _ := s.register(t, "bobby")

	_, raw := s.do(t, request{method: http.MethodPost, path: "/api/v3/chats", token: token, body: map[string]any{"uids": []int64{uidB}}})
	room := decode[core.Room](t, raw)
	path := fmt.Sprintf("/api/v3/chats/%d", room.RoomID)

	// No cookies are sent: the token alone identifies the session.
	accepted := 0
	for i := range 5 {
		resp, raw := s.do(t, request{method: http.MethodPost, path: path, token: token, body: map[string]any{"message": fmt.Sprintf("msg %d", i)}})
		switch resp.StatusCode {
		case http.StatusOK:
			accepted++
		case http.StatusTooManyRequests:
			if got := decode[ErrorResponse](t, raw).Code; got != core.ErrCodeTooManyMessages {
				t.Fatalf("code = %q", got)
			}
		default:
			t.Fatalf("post %d status %d: %s", i, resp.StatusCode, raw)
		}
	}
	if accepted != 1 {
		t.Fatalf("posts accepted inside the delay window = %d, want 1", accepted)
	}

	resp, _ := s.do(t, request{method: http.MethodPost, path: path, token: token, session: uuid.NewString(), body: map[string]any{"message": "cookie"}})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("a fresh cookie must not reset the limit, status %d", resp.StatusCode)
	}

	fresh, err := s.auth.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp, raw = s.do(t, request{method: http.MethodPost, path: path, token: fresh, body: map[string]any{"message": "new login"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new login post status %d: %s", resp.StatusCode, raw)
	}
}

func TestInvalidRoomID(t *testing.T) {
	s := startTestServer(t, gateway.Settings{})
	_, token := s.register(t, "alice")

	resp, raw := s.do(t, request{method: http.MethodGet, path: "/api/v3/chats/abc/users", token: token})
	if got := decode[ErrorResponse](t, raw).Code; resp.StatusCode != http.StatusBadRequest || got != core.ErrCodeInvalidData {
		t.Fatalf("status %d code %q", resp.StatusCode, got)
	}
}
