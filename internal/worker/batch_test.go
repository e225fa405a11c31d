package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/ghitriage/internal/model"
)

type mockFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	missing map[string]bool
}

func (m *mockFetcher) GetSignal(ctx context.Context, id string) (*model.Signal, error) {
	time.Sleep(5 * time.Millisecond)
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[id]++
	m.mu.Unlock()
	if m.missing[id] {
		return nil, errors.New("signal not found")
	}
	return &model.Signal{ID: id, Disease: "Cholera"}, nil
}

func TestBatchLookup_Signals(t *testing.T) {
	fetcher := &mockFetcher{missing: map[string]bool{"b": true}}
	lookup := NewBatchLookup(fetcher, 2)

	results := lookup.Signals(context.Background(), []string{"a", "b", "c", "a"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantOrder := []string{"a", "b", "c"}
	for i, res := range results {
		if res.ID != wantOrder[i] {
			t.Errorf("result %d: expected id %s, got %s", i, wantOrder[i], res.ID)
		}
	}
	if results[0].Error != nil || results[0].Signal == nil {
		t.Errorf("expected signal a, got err %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for missing signal b")
	}
	if fetcher.calls["a"] != 1 {
		t.Errorf("expected duplicate id to be fetched once, got %d", fetcher.calls["a"])
	}
}

func TestBatchLookup_Empty(t *testing.T) {
	lookup := NewBatchLookup(&mockFetcher{}, 2)
	if results := lookup.Signals(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchLookup_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchLookup(&mockFetcher{}, 2).Signals(ctx, []string{"a", "b"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected cancellation error for %s", res.ID)
		}
	}
}

func TestReadIDsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	content := "# pending review\nid-1\n\nid-2\nid-1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadIDsFromFile failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "id-1" || ids[1] != "id-2" {
		t.Errorf("unexpected ids: %v", ids)
	}

	if _, err := ReadIDsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
