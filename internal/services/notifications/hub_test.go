package notifications

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

func dialHub(t *testing.T, hub *Hub, uid string) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("uid"))
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + uid
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial websocket: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(uid) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection for %s was not registered", uid)
		}
		time.Sleep(5 * time.Millisecond)
	}

	return ws, func() {
		_ = ws.Close()
		srv.Close()
	}
}

func TestHubSendReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub(nil, nil)

	alice, closeAlice := dialHub(t, hub, "alice")
	defer closeAlice()
	bob, closeBob := dialHub(t, hub, "bob")
	defer closeBob()

	delivered := hub.Send("alice", model.Notification{Title: "Region unlocked", Body: "Bavaria", Data: map[string]string{"region": "by"}})
	if delivered != 1 {
		t.Fatalf("expected one delivery, got %d", delivered)
	}

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.Notification
	if err := alice.ReadJSON(&got); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if got.Title != "Region unlocked" || got.Data["region"] != "by" {
		t.Fatalf("unexpected notification: %+v", got)
	}

	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatalf("bob must not receive alice's notification")
	}
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub := NewHub(nil, nil)

	ws, cleanup := dialHub(t, hub, "carol")
	defer cleanup()
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("carol") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("closed connection is still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if delivered := hub.Send("carol", model.Notification{Title: "x"}); delivered != 0 {
		t.Fatalf("expected no deliveries after disconnect, got %d", delivered)
	}
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "dave")
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("expected handshake to fail for a foreign origin")
	}
}

type recordingSender struct {
	sent []model.Notification
}

func (r *recordingSender) Send(_ string, n model.Notification) int {
	r.sent = append(r.sent, n)
	return 1
}

type profileMap map[string]model.UserProfile

func (p profileMap) Get(_ context.Context, uid string) (model.UserProfile, error) {
	profile, ok := p[uid]
	if !ok {
		return model.UserProfile{}, errors.New("not found")
	}
	return profile, nil
}

func TestNotifyRespectsPreference(t *testing.T) {
	sender := &recordingSender{}
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(sender, profileMap{
		"on":  {UID: "on", NotificationsEnabled: true},
		"off": {UID: "off", NotificationsEnabled: false},
	}, nil)
	svc.now = func() time.Time { return now }

	svc.NotifyText(context.Background(), "on", "hello", "world")
	svc.NotifyText(context.Background(), "off", "hello", "world")
	svc.NotifyText(context.Background(), "missing", "hello", "world")

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(sender.sent))
	}
	if !sender.sent[0].SentAt.Equal(now) {
		t.Fatalf("expected sent_at to be stamped, got %s", sender.sent[0].SentAt)
	}
}
