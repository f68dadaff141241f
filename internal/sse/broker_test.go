package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/noteservice"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("alice")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestSendDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	b.Send(Event{Owner: "alice", Type: "note.created", Data: map[string]string{"note_id": "n1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"note_id":"n1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestEventsAreOwnerScoped(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	alice := b.Subscribe("alice")
	defer b.Unsubscribe(alice)
	bob := b.Subscribe("bob")
	defer b.Unsubscribe(bob)

	b.Publish(noteservice.Event{Kind: noteservice.EventCreated, Owner: "alice", NoteID: "n1"})

	select {
	case msg := <-alice:
		if !strings.Contains(string(msg), "event: note.created") {
			t.Errorf("alice got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for alice's event")
	}

	time.Sleep(50 * time.Millisecond)
	select {
	case msg := <-bob:
		t.Errorf("bob received alice's event: %q", msg)
	default:
	}
}

func TestPublish_RevalidateThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	// First event triggers notes.revalidate; the second, immediately after, does not.
	b.Publish(noteservice.Event{Kind: noteservice.EventCreated, Owner: "alice", NoteID: "a"})
	b.Publish(noteservice.Event{Kind: noteservice.EventUpdated, Owner: "alice", NoteID: "b"})

	time.Sleep(50 * time.Millisecond)
	revalidateCount := 0
	noteCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "notes.revalidate") {
				revalidateCount++
			} else {
				noteCount++
			}
		default:
			break loop
		}
	}

	if noteCount != 2 {
		t.Errorf("note events = %d, want 2", noteCount)
	}
	if revalidateCount != 1 {
		t.Errorf("revalidate events = %d, want 1 (throttled)", revalidateCount)
	}
}

// syncRecorder guards the body so the test can read it while the handler writes.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = gateway.WithAuth(ctx, &gateway.AuthContext{Owner: "alice", Channel: gateway.ChannelSession})

	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(noteservice.Event{Kind: noteservice.EventUpdated, Owner: "alice", NoteID: "x"})
	b.Publish(noteservice.Event{Kind: noteservice.EventDeleted, Owner: "bob", NoteID: "y"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.body()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, "note.deleted") {
		t.Errorf("handler leaked another owner's event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSSEHandlerRequiresAuth(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	w := httptest.NewRecorder()
	b.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	// Overflow the client buffer (capacity 64); Publish must not block.
	for i := 0; i < 70; i++ {
		b.Publish(noteservice.Event{Kind: noteservice.EventUpdated, Owner: "alice", NoteID: "x"})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("alice")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Send(Event{Owner: "alice", Type: "note.updated"})
	b.Publish(noteservice.Event{Kind: noteservice.EventUpdated, Owner: "alice", NoteID: "x"})
}
