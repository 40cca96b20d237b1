package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
	"github.com/vovakirdan/pairchat/internal/store/sqlite"
)

// staticVerifier accepts the tokens it knows.
type staticVerifier map[string]store.Claim

func (v staticVerifier) Verify(token string) (store.Claim, error) {
	claim, ok := v[token]
	if !ok {
		return store.Claim{}, auth.ErrInvalidCredential
	}
	return claim, nil
}

type testEnv struct {
	engine   *Engine
	store    *sqlite.SQLiteStore
	sessions *session.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewMemory()
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sessions := session.NewMemory()
	verifier := staticVerifier{
		"alice-token": {Username: "alice", Email: "alice@example.com"},
		"bob-token":   {Username: "bob", Email: "bob@example.com"},
		"carol-token": {Username: "carol", Email: "carol@example.com"},

		// mallory claims an email that already belongs to alice.
		"mallory-token": {Username: "mallory", Email: "alice@example.com"},
	}

	return &testEnv{
		engine: NewEngine(Options{
			Verifier: verifier,
			Store:    st,
			Sessions: sessions,
			Buffer:   256,
		}),
		store:    st,
		sessions: sessions,
	}
}

func (e *testEnv) connect(t *testing.T, token string) *Client {
	t.Helper()

	c, err := e.engine.Connect(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("connect %s: %v", token, err)
	}
	t.Cleanup(func() { _ = e.engine.Disconnect(context.Background(), c) })
	return c
}

// do runs cmd synchronously and returns the reply, or nil if there was none.
func (e *testEnv) do(t *testing.T, c *Client, cmd *Command) *Event {
	t.Helper()

	e.engine.Handle(context.Background(), c, cmd)
	select {
	case ev := <-c.Events:
		return ev
	default:
		return nil
	}
}

func (e *testEnv) join(t *testing.T, c *Client, receiver string) store.ID {
	t.Helper()

	ev := e.do(t, c, &Command{Kind: CommandJoinPrivateRoom, Receiver: receiver})
	if ev == nil || ev.Kind != EventRoomJoined {
		t.Fatalf("join %s: unexpected reply %+v", receiver, ev)
	}
	return ev.Room
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustKind(t *testing.T, err error, kind Kind) {
	t.Helper()

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, e.Kind, err)
	}
}
