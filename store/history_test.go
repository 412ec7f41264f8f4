package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openclaw/qrgen/qr"
)

func openHistory(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewHistoryStore returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryRecent(t *testing.T) {
	s := openHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	for i, data := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		g := &qr.Generation{
			Filename:  Filename(data, at),
			URL:       "http://localhost:5001/uploads/" + Filename(data, at),
			Data:      data,
			Size:      300,
			Width:     290,
			CreatedAt: at,
		}
		if err := s.RecordGeneration(ctx, g); err != nil {
			t.Fatalf("RecordGeneration(%q) returned error: %v", data, err)
		}
	}

	recs, err := s.Recent(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Recent returned %d records, want 3", len(recs))
	}
	if recs[0].Data != "third" || recs[2].Data != "first" {
		t.Fatalf("records not ordered newest first: %+v", recs)
	}
	if recs[0].Width != 290 || recs[0].Size != 300 {
		t.Fatalf("unexpected dimensions: %+v", recs[0])
	}
	if recs[0].CreatedAt != base.Add(2*time.Minute).Unix() {
		t.Fatalf("unexpected created_at %d", recs[0].CreatedAt)
	}

	page, err := s.Recent(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Recent with offset returned error: %v", err)
	}
	if len(page) != 1 || page[0].Data != "second" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestHistorySearch(t *testing.T) {
	s := openHistory(t)
	ctx := context.Background()
	now := time.Now()

	for _, data := range []string{"https://example.com/tickets/42", "plain greeting text"} {
		g := &qr.Generation{Filename: Filename(data, now), Data: data, Size: 300, Width: 290, CreatedAt: now}
		if err := s.RecordGeneration(ctx, g); err != nil {
			t.Fatalf("RecordGeneration returned error: %v", err)
		}
	}

	recs, err := s.Search(ctx, "tickets", 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(recs) != 1 || recs[0].Data != "https://example.com/tickets/42" {
		t.Fatalf("unexpected search results: %+v", recs)
	}

	recs, err = s.Search(ctx, `say "hi`, 10)
	if err != nil {
		t.Fatalf("Search with quotes returned error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no results, got %+v", recs)
	}
}
