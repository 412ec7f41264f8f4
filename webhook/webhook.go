// Package webhook delivers generation events to an external HTTP endpoint.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openclaw/qrgen/qr"
)

// Event is the JSON body sent to the configured webhook URL for each
// generated QR code.
type Event struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Data      string `json:"data"`
	Size      int    `json:"size"`
	Width     int    `json:"width"`
	Timestamp int64  `json:"timestamp"`
}

// Sender delivers events to a webhook endpoint, dropping repeats of a
// filename seen within the dedup TTL.
type Sender struct {
	url    string
	ttl    time.Duration
	seen   map[string]time.Time // filename -> first seen time
	mu     sync.Mutex
	client *http.Client
	log    *slog.Logger
}

// NewSender creates a Sender ready to POST events to url. If url is empty
// the sender is a no-op.
func NewSender(url string, timeout, ttl time.Duration, log *slog.Logger) *Sender {
	return &Sender{
		url:  url,
		ttl:  ttl,
		seen: make(map[string]time.Time),
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Enabled reports whether a webhook URL is configured.
func (s *Sender) Enabled() bool {
	return s.url != ""
}

// Notify converts g to an Event and sends it.
func (s *Sender) Notify(g *qr.Generation) error {
	return s.Send(&Event{
		Filename:  g.Filename,
		URL:       g.URL,
		Data:      g.Data,
		Size:      g.Size,
		Width:     g.Width,
		Timestamp: g.CreatedAt.Unix(),
	})
}

// Send delivers an event to the configured endpoint. It silently returns nil
// when no webhook URL is configured or when the filename has already been
// sent within the TTL.
func (s *Sender) Send(evt *Event) error {
	if s.url == "" {
		return nil
	}

	s.mu.Lock()
	s.cleanupSeenLocked()
	if _, ok := s.seen[evt.Filename]; ok {
		s.mu.Unlock()
		s.log.Debug("webhook skipping duplicate filename", "filename", evt.Filename)
		return nil
	}
	s.seen[evt.Filename] = time.Now()
	s.mu.Unlock()

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("webhook marshal event: %w", err)
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.log.Debug("webhook delivered", "status", resp.StatusCode, "filename", evt.Filename)
	return nil
}

// cleanupSeenLocked removes stale entries from the seen map. The caller MUST
// hold s.mu.
func (s *Sender) cleanupSeenLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for name, t := range s.seen {
		if t.Before(cutoff) {
			delete(s.seen, name)
		}
	}
}
