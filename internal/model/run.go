package model

import "time"

// SyncMode selects how a sync run walks the remote listing.
type SyncMode string

const (
	// SyncModeFull walks the entire listing from the beginning.
	SyncModeFull SyncMode = "full"

	// SyncModePoll walks the listing but skips items not updated
	// since the last successful run.
	SyncModePoll SyncMode = "poll"

	// SyncModeResume continues a partially completed full walk from
	// the persisted checkpoint cursor.
	SyncModeResume SyncMode = "resume"
)

// SyncRun records a single sync invocation against a source.
type SyncRun struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`

	// Source identifies the integration that was synced.
	Source SourceType `json:"source"`

	// Mode is the sync mode the run was started with.
	Mode SyncMode `json:"mode"`

	// StartedAt is when the run began. Poll runs use the previous
	// successful run's StartedAt as their time lower bound.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended, successfully or not.
	FinishedAt time.Time `json:"finished_at"`

	// Documents is the total number of documents emitted.
	Documents int `json:"documents"`

	// Batches is the number of batches emitted.
	Batches int `json:"batches"`

	// Success reports whether the run completed without error.
	Success bool `json:"success"`

	// Error holds the failure message for unsuccessful runs.
	Error string `json:"error,omitempty"`
}
