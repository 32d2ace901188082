package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nhle/helpdesk-sync/internal/model"
)

// fakeItem implements Item with a fixed update time and document ID.
type fakeItem struct {
	id      string
	updated time.Time
}

func (i fakeItem) UpdateTime() time.Time { return i.updated }

func (i fakeItem) Document() model.Document {
	return model.Document{
		ID:        i.id,
		Source:    model.SourceTypeIntercom,
		Title:     "Conversation " + i.id,
		UpdatedAt: i.updated,
	}
}

// fakePage describes one page of a scripted listing.
type fakePage struct {
	items []fakeItem
	next  string
}

// fakeProvider serves a scripted listing keyed by cursor and records
// the cursors it was asked for.
type fakeProvider struct {
	pages   map[string]fakePage
	fetched []string
	fail    map[string]error
}

func (p *fakeProvider) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	p.fetched = append(p.fetched, cursor)

	if err := p.fail[cursor]; err != nil {
		return nil, err
	}

	pg, ok := p.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("no page for cursor %q", cursor)
	}

	items := make([]Item, 0, len(pg.items))
	for _, it := range pg.items {
		items = append(items, it)
	}
	return &Page{Items: items, NextCursor: pg.next}, nil
}

// memCheckpointer records every saved cursor in order.
type memCheckpointer struct {
	saved []string
}

func (c *memCheckpointer) SaveCursor(ctx context.Context, cursor string) error {
	c.saved = append(c.saved, cursor)
	return nil
}

// collect returns an EmitFunc appending every batch to the given slice.
func collect(batches *[]Batch) EmitFunc {
	return func(b Batch) error {
		*batches = append(*batches, b)
		return nil
	}
}

func ts(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func docIDs(batches []Batch) []string {
	var ids []string
	for _, b := range batches {
		for _, d := range b {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func TestRunEmitsAllItemsAcrossPages(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"": {
			items: []fakeItem{{"a", ts(100)}, {"b", ts(200)}, {"c", ts(300)}},
			next:  "p2",
		},
		"p2": {
			items: []fakeItem{{"d", ts(400)}, {"e", ts(500)}},
		},
	}}

	var batches []Batch
	cursor, err := Run(context.Background(), provider, Options{BatchSize: 10}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if cursor != "p2" {
		t.Errorf("expected final cursor p2, got %q", cursor)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}

	want := []string{"a", "b", "c", "d", "e"}
	got := docIDs(batches)
	if len(got) != len(want) {
		t.Fatalf("expected %d documents, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("document %d: expected %s, got %s", i, id, got[i])
		}
	}
}

func TestRunFlushesBatchesAtBound(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"": {items: []fakeItem{{"a", ts(1)}, {"b", ts(2)}, {"c", ts(3)}}},
	}}

	var batches []Batch
	_, err := Run(context.Background(), provider, Options{BatchSize: 1}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("expected 3 single-document batches, got %d", len(batches))
	}
	for i, want := range []string{"a", "b", "c"} {
		if len(batches[i]) != 1 {
			t.Fatalf("batch %d: expected 1 document, got %d", i, len(batches[i]))
		}
		if batches[i][0].ID != want {
			t.Errorf("batch %d: expected %s, got %s", i, want, batches[i][0].ID)
		}
	}
}

func TestRunFinalPartialBatch(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"": {items: []fakeItem{{"a", ts(1)}, {"b", ts(2)}, {"c", ts(3)}}},
	}}

	var batches []Batch
	_, err := Run(context.Background(), provider, Options{BatchSize: 2}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Errorf(
			"expected batch sizes [2 1], got [%d %d]",
			len(batches[0]), len(batches[1]),
		)
	}
}

func TestRunTimeBoundFiltersButKeepsScanning(t *testing.T) {
	// Page 1 holds A(100) and B(50); the bound is 75. B must be
	// skipped without stopping the walk, so C(200) on page 2 is
	// still delivered.
	provider := &fakeProvider{pages: map[string]fakePage{
		"":   {items: []fakeItem{{"a", ts(100)}, {"b", ts(50)}}, next: "p2"},
		"p2": {items: []fakeItem{{"c", ts(200)}}},
	}}

	since := ts(75)
	var batches []Batch
	_, err := Run(context.Background(), provider, Options{
		BatchSize: 10,
		Since:     &since,
	}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	got := docIDs(batches)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("expected [a c], got %v", got)
	}

	// Both pages must have been requested despite the old item.
	if len(provider.fetched) != 2 {
		t.Errorf("expected 2 page fetches, got %d", len(provider.fetched))
	}
}

func TestRunBoundIsInclusive(t *testing.T) {
	// An item updated exactly at the bound is kept; only strictly
	// older items are filtered.
	provider := &fakeProvider{pages: map[string]fakePage{
		"": {items: []fakeItem{{"exact", ts(75)}, {"older", ts(74)}}},
	}}

	since := ts(75)
	var batches []Batch
	_, err := Run(context.Background(), provider, Options{
		BatchSize: 10,
		Since:     &since,
	}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got := docIDs(batches)
	if len(got) != 1 || got[0] != "exact" {
		t.Errorf("expected [exact], got %v", got)
	}
}

func TestRunSavesCheckpointPerPageTransition(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"":   {items: []fakeItem{{"a", ts(1)}}, next: "p2"},
		"p2": {items: []fakeItem{{"b", ts(2)}}, next: "p3"},
		"p3": {items: []fakeItem{{"c", ts(3)}}},
	}}

	cp := &memCheckpointer{}
	var batches []Batch
	cursor, err := Run(context.Background(), provider, Options{
		BatchSize:  10,
		Checkpoint: cp,
	}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if cursor != "p3" {
		t.Errorf("expected final cursor p3, got %q", cursor)
	}
	if len(cp.saved) != 2 || cp.saved[0] != "p2" || cp.saved[1] != "p3" {
		t.Errorf("expected checkpoints [p2 p3], got %v", cp.saved)
	}
}

func TestRunResumeFetchesOnlyRemainingPages(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"":   {items: []fakeItem{{"a", ts(1)}}, next: "p2"},
		"p2": {items: []fakeItem{{"b", ts(2)}}, next: "p3"},
		"p3": {items: []fakeItem{{"c", ts(3)}}},
	}}

	// Resume seeded with the cursor saved after the 2nd-to-last
	// page: only the final page is re-fetched.
	var batches []Batch
	_, err := Run(context.Background(), provider, Options{
		BatchSize: 10,
		Resume:    "p3",
	}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got := docIDs(batches)
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("expected only [c] after resume, got %v", got)
	}
	if len(provider.fetched) != 1 || provider.fetched[0] != "p3" {
		t.Errorf("expected a single fetch of p3, got %v", provider.fetched)
	}
}

func TestRunProviderErrorPreservesCursor(t *testing.T) {
	bang := errors.New("upstream exploded")
	provider := &fakeProvider{
		pages: map[string]fakePage{
			"": {items: []fakeItem{{"a", ts(1)}}, next: "p2"},
		},
		fail: map[string]error{"p2": bang},
	}

	cp := &memCheckpointer{}
	var batches []Batch
	cursor, err := Run(context.Background(), provider, Options{
		BatchSize:  10,
		Checkpoint: cp,
	}, collect(&batches))

	if !errors.Is(err, bang) {
		t.Fatalf("expected the provider error, got %v", err)
	}

	// The first page's documents were emitted before the failure,
	// and the failing page's cursor was already persisted so a
	// resume retries exactly that page.
	if cursor != "p2" {
		t.Errorf("expected cursor p2 at failure, got %q", cursor)
	}
	if len(cp.saved) != 1 || cp.saved[0] != "p2" {
		t.Errorf("expected checkpoint [p2], got %v", cp.saved)
	}
}

func TestRunEmitErrorStopsWalk(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"":   {items: []fakeItem{{"a", ts(1)}, {"b", ts(2)}}, next: "p2"},
		"p2": {items: []fakeItem{{"c", ts(3)}}},
	}}

	stop := errors.New("consumer stopped")
	emitted := 0
	_, err := Run(context.Background(), provider, Options{BatchSize: 1},
		func(b Batch) error {
			emitted++
			if emitted == 2 {
				return stop
			}
			return nil
		})

	if !errors.Is(err, stop) {
		t.Fatalf("expected consumer error, got %v", err)
	}
	if emitted != 2 {
		t.Errorf("expected 2 emit calls, got %d", emitted)
	}
	// The second page must never have been requested.
	if len(provider.fetched) != 1 {
		t.Errorf("expected 1 page fetch, got %d", len(provider.fetched))
	}
}

func TestRunEmptyListing(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"": {},
	}}

	var batches []Batch
	cursor, err := Run(context.Background(), provider, Options{BatchSize: 10}, collect(&batches))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if cursor != "" {
		t.Errorf("expected empty cursor, got %q", cursor)
	}
	if len(batches) != 0 {
		t.Errorf("expected no batches, got %d", len(batches))
	}
}

func TestRunCancelledContext(t *testing.T) {
	provider := &fakeProvider{pages: map[string]fakePage{
		"": {items: []fakeItem{{"a", ts(1)}}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var batches []Batch
	_, err := Run(ctx, provider, Options{BatchSize: 10}, collect(&batches))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(provider.fetched) != 0 {
		t.Errorf("expected no fetches after cancellation, got %d", len(provider.fetched))
	}
}
