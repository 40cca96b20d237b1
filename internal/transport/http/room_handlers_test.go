package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/store"
)

// seedConversation creates alice, bob and carol plus the alice/bob room with n messages.
func seedConversation(t *testing.T, s *testServer, n int) store.ID {
	t.Helper()
	ctx := context.Background()

	users := map[string]*store.User{}
	for _, name := range []string{"alice", "bob", "carol"} {
		u, err := store.GetOrCreateUser(ctx, s.store, store.Claim{Username: name, Email: name + "@example.com"})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		users[name] = u
	}

	roomID, err := s.engine.Negotiator.ResolvePrivateRoom(ctx, users["alice"].ID, "bob")
	if err != nil {
		t.Fatalf("resolve room: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range n {
		msg := store.Message{Sender: "alice", Body: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Second)}
		if _, err := s.store.AppendMessage(ctx, roomID, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return roomID
}

func (s *testServer) get(t *testing.T, path, username string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if username != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, username))
	}
	resp := httptest.NewRecorder()
	s.ts.Config.Handler.ServeHTTP(resp, req)
	return resp
}

func TestListRoomsREST(t *testing.T) {
	s := startTestServer(t, nil)
	roomID := seedConversation(t, s, 0)

	resp := s.get(t, "/api/rooms", "alice")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body ListRoomsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rooms) != 1 || body.Rooms[0].ID != roomID.Hex() || body.Rooms[0].Type != "private" {
		t.Fatalf("unexpected rooms %+v", body.Rooms)
	}
	if len(body.Rooms[0].Participants) != 2 {
		t.Fatalf("expected 2 participants, got %v", body.Rooms[0].Participants)
	}

	resp = s.get(t, "/api/rooms", "carol")
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rooms == nil || len(body.Rooms) != 0 {
		t.Fatalf("carol should have an empty list, got %s", resp.Body.String())
	}
}

func TestListMessagesREST(t *testing.T) {
	s := startTestServer(t, nil)
	roomID := seedConversation(t, s, 5)

	resp := s.get(t, "/api/rooms/"+roomID.Hex()+"/messages?limit=3", "bob")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body MessagesResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Message != "c" || body.Messages[2].Message != "e" {
		t.Fatalf("expected the latest messages oldest first, got %+v", body.Messages)
	}
}

func TestListMessagesAuthorization(t *testing.T) {
	s := startTestServer(t, nil)
	roomID := seedConversation(t, s, 1)

	tests := []struct {
		name     string
		path     string
		user     string
		status   int
		errorTyp string
	}{
		{"no token", "/api/rooms/" + roomID.Hex() + "/messages", "", http.StatusUnauthorized, "AuthenticationError"},
		{"unknown user", "/api/rooms/" + roomID.Hex() + "/messages", "mallory", http.StatusUnauthorized, "AuthenticationError"},
		{"not a participant", "/api/rooms/" + roomID.Hex() + "/messages", "carol", http.StatusForbidden, "ForbiddenError"},
		{"malformed id", "/api/rooms/xyz/messages", "alice", http.StatusBadRequest, "ValidationError"},
		{"unknown room", "/api/rooms/" + store.NewID().Hex() + "/messages", "alice", http.StatusNotFound, "NotFoundError"},
		{"bad limit", "/api/rooms/" + roomID.Hex() + "/messages?limit=-1", "alice", http.StatusBadRequest, "ValidationError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.get(t, tt.path, tt.user)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			var refusal proto.Refusal
			if err := json.Unmarshal(resp.Body.Bytes(), &refusal); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if refusal.Error.Type != tt.errorTyp {
				t.Fatalf("expected %s, got %+v", tt.errorTyp, refusal.Error)
			}
		})
	}
}
