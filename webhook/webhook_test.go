package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openclaw/qrgen/qr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendDeliversEvent(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode event: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, time.Minute, discardLogger())
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	err := s.Notify(&qr.Generation{
		Filename:  "qr_20261018090000_17.png",
		URL:       "http://localhost:5001/uploads/qr_20261018090000_17.png",
		Data:      "hello",
		Size:      300,
		Width:     290,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if got.Filename != "qr_20261018090000_17.png" || got.Data != "hello" || got.Width != 290 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Timestamp != at.Unix() {
		t.Fatalf("timestamp = %d, want %d", got.Timestamp, at.Unix())
	}
}

func TestSendDeduplicatesFilename(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, time.Minute, discardLogger())
	for i := 0; i < 3; i++ {
		if err := s.Send(&Event{Filename: "qr_same.png"}); err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
	}
	if err := s.Send(&Event{Filename: "qr_other.png"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("webhook hit %d times, want 2", n)
	}
}

func TestSendExpiredDedupEntry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, time.Minute, discardLogger())
	if err := s.Send(&Event{Filename: "qr_same.png"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	s.mu.Lock()
	s.seen["qr_same.png"] = time.Now().Add(-2 * time.Minute)
	s.mu.Unlock()
	if err := s.Send(&Event{Filename: "qr_same.png"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("webhook hit %d times, want 2", n)
	}
}

func TestSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, time.Minute, discardLogger())
	if err := s.Send(&Event{Filename: "qr_a.png"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendDisabled(t *testing.T) {
	s := NewSender("", time.Second, time.Minute, discardLogger())
	if s.Enabled() {
		t.Fatal("sender without url should be disabled")
	}
	if err := s.Send(&Event{Filename: "qr_a.png"}); err != nil {
		t.Fatalf("disabled Send returned error: %v", err)
	}
}
