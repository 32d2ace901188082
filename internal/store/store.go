package store

import (
	"context"

	"github.com/nhle/helpdesk-sync/internal/model"
)

// DocumentFilter controls filtering, sorting, and pagination for
// document queries.
type DocumentFilter struct {
	Source   *string
	Query    *string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// Store defines the persistence interface for normalized documents,
// resume checkpoints, and sync run history.
type Store interface {
	// === Documents ===

	UpsertDocuments(ctx context.Context, docs []model.Document) error
	GetDocuments(ctx context.Context, opts DocumentFilter) ([]model.Document, error)
	GetDocumentByID(ctx context.Context, id string) (*model.Document, error)
	CountDocuments(ctx context.Context, source model.SourceType) (int, error)

	// === Checkpoints ===

	// GetCursor returns the persisted resume cursor for a source, or
	// an empty string when none is stored.
	GetCursor(ctx context.Context, source model.SourceType) (string, error)
	SaveCursor(ctx context.Context, source model.SourceType, cursor string) error
	ClearCursor(ctx context.Context, source model.SourceType) error

	// === Sync runs ===

	CreateRun(ctx context.Context, run model.SyncRun) error
	FinishRun(ctx context.Context, run model.SyncRun) error
	GetRuns(ctx context.Context, source model.SourceType, limit int) ([]model.SyncRun, error)

	// LastSuccessfulRun returns the most recent successful run for a
	// source, or nil when the source has never completed a run.
	LastSuccessfulRun(ctx context.Context, source model.SourceType) (*model.SyncRun, error)
}
