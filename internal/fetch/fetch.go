// Package fetch implements the checkpointed incremental fetch loop
// shared by all connector entry modes: walk a paginated listing page
// by page, filter items against an optional time lower bound, group
// the transformed documents into bounded batches, and persist the
// resume cursor after each fully processed page.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/helpdesk-sync/internal/model"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 50

// Batch is a bounded group of documents emitted together to the
// consumer, in discovery order.
type Batch []model.Document

// Item is a single raw listing record that has not been transformed
// yet. The fetch loop reads its update time before deciding whether
// to transform it at all.
type Item interface {
	// UpdateTime returns when the item was last modified upstream.
	UpdateTime() time.Time

	// Document transforms the raw item into its normalized form.
	Document() model.Document
}

// Page is one page of the remote listing.
type Page struct {
	// Items holds the page's records in upstream order.
	Items []Item

	// NextCursor is the opaque token for the following page, empty
	// when the listing is exhausted.
	NextCursor string
}

// PageProvider returns pages of the remote listing. An empty cursor
// requests the first page. Implementations must preserve item order
// within a page and eventually return an empty NextCursor.
type PageProvider interface {
	FetchPage(ctx context.Context, cursor string) (*Page, error)
}

// Checkpointer persists the resume cursor between pages so a restarted
// run can continue after the last fully processed page.
type Checkpointer interface {
	SaveCursor(ctx context.Context, cursor string) error
}

// EmitFunc receives each completed batch. Returning an error stops the
// walk; the cursor is never advanced past the last fully processed
// page, so a later resume is safe.
type EmitFunc func(batch Batch) error

// Options controls a single fetch run.
type Options struct {
	// BatchSize is the maximum number of documents per batch.
	BatchSize int

	// Since, when set, skips items whose update time is strictly
	// before it. Pages are still walked in full because the upstream
	// ordering is not guaranteed to be monotonic by update time.
	Since *time.Time

	// Resume is the cursor to seed the walk with; empty starts from
	// the beginning of the listing.
	Resume string

	// Checkpoint, when set, receives the cursor after each page
	// transition. Nil disables checkpointing.
	Checkpoint Checkpointer
}

// Run walks the listing exposed by provider and emits batches of
// normalized documents. It returns the last cursor that was reached,
// which for a completed walk is the cursor of the final page
// transition (or the seed cursor when the listing fit in one page).
//
// Items are processed strictly in page order. A page's cursor is
// persisted only after every item on that page has been handled, so a
// restart re-delivers at most the items of the interrupted page.
func Run(
	ctx context.Context,
	provider PageProvider,
	opts Options,
	emit EmitFunc,
) (string, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	cursor := opts.Resume
	batch := make(Batch, 0, batchSize)

	for {
		if err := ctx.Err(); err != nil {
			return cursor, err
		}

		page, err := provider.FetchPage(ctx, cursor)
		if err != nil {
			return cursor, fmt.Errorf("fetching page: %w", err)
		}

		for _, item := range page.Items {
			// Skip already-seen items during a poll, but keep
			// scanning the rest of the page: upstream ordering by
			// update time is not a documented contract.
			if opts.Since != nil && item.UpdateTime().Before(*opts.Since) {
				continue
			}

			batch = append(batch, item.Document())

			if len(batch) == batchSize {
				if err := emit(batch); err != nil {
					return cursor, err
				}
				batch = make(Batch, 0, batchSize)
			}
		}

		if page.NextCursor == "" {
			break
		}

		cursor = page.NextCursor
		if opts.Checkpoint != nil {
			if err := opts.Checkpoint.SaveCursor(ctx, cursor); err != nil {
				return cursor, fmt.Errorf("saving checkpoint: %w", err)
			}
		}
	}

	if len(batch) > 0 {
		if err := emit(batch); err != nil {
			return cursor, err
		}
	}

	return cursor, nil
}
