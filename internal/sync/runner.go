package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/helpdesk-sync/internal/fetch"
	"github.com/nhle/helpdesk-sync/internal/model"
	"github.com/nhle/helpdesk-sync/internal/obs"
	"github.com/nhle/helpdesk-sync/internal/store"
)

// EventType classifies a progress event emitted during a sync run.
type EventType int

const (
	// EventStarted is sent once when the run begins.
	EventStarted EventType = iota

	// EventBatch is sent after each batch has been persisted.
	EventBatch

	// EventFinished is sent once when the run ends, successfully
	// or not.
	EventFinished
)

// Event is a progress update emitted while a sync run is in flight.
type Event struct {
	Type      EventType
	Source    model.SourceType
	Mode      model.SyncMode
	Batches   int
	Documents int
	Err       error
}

// Connector is the set of fetch capabilities the runner drives. All
// three entry modes share the same underlying pagination walk.
type Connector interface {
	Type() model.SourceType

	// LoadAll walks the entire listing from the beginning.
	LoadAll(ctx context.Context, batchSize int, emit fetch.EmitFunc) error

	// Poll walks the listing, skipping items not updated since the
	// given time.
	Poll(ctx context.Context, since time.Time, batchSize int, emit fetch.EmitFunc) error

	// ResumeLoad continues a full walk from cursor, persisting page
	// transitions through cp.
	ResumeLoad(
		ctx context.Context,
		cursor string,
		cp fetch.Checkpointer,
		batchSize int,
		emit fetch.EmitFunc,
	) (string, error)
}

// Runner executes sync runs against a connector, persisting documents
// and run history through the store and emitting progress events.
type Runner struct {
	store  store.Store
	log    zerolog.Logger
	events chan Event
}

// NewRunner creates a Runner backed by the given store.
func NewRunner(s store.Store) *Runner {
	return &Runner{
		store:  s,
		log:    obs.Logger("sync"),
		events: make(chan Event, 16),
	}
}

// Events returns the progress event channel. Events are dropped
// rather than blocking the run when no consumer is listening.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// storeCheckpointer adapts the store's cursor slot to the
// fetch.Checkpointer contract for a single source.
type storeCheckpointer struct {
	store  store.Store
	source model.SourceType
}

func (c storeCheckpointer) SaveCursor(ctx context.Context, cursor string) error {
	return c.store.SaveCursor(ctx, c.source, cursor)
}

// Sync executes one run in the given mode and records it. The
// returned run reflects the final counters and outcome; the error is
// the run's failure cause, if any. Batches persisted before a failure
// remain in the store, and for resume runs the last saved cursor
// stays valid for a later attempt.
func (r *Runner) Sync(
	ctx context.Context,
	c Connector,
	mode model.SyncMode,
	batchSize int,
) (*model.SyncRun, error) {
	run := model.SyncRun{
		ID:        uuid.New().String(),
		Source:    c.Type(),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}

	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("source", string(run.Source)).
		Str("mode", string(mode)).
		Str("run_id", run.ID).
		Msg("sync started")
	r.send(Event{Type: EventStarted, Source: run.Source, Mode: mode})

	emit := func(batch fetch.Batch) error {
		if err := r.store.UpsertDocuments(ctx, batch); err != nil {
			return err
		}
		run.Batches++
		run.Documents += len(batch)

		r.log.Debug().
			Int("batch", run.Batches).
			Int("documents", run.Documents).
			Msg("batch persisted")
		r.send(Event{
			Type:      EventBatch,
			Source:    run.Source,
			Mode:      mode,
			Batches:   run.Batches,
			Documents: run.Documents,
		})
		return nil
	}

	err := r.dispatch(ctx, c, mode, batchSize, emit)

	run.FinishedAt = time.Now().UTC()
	run.Success = err == nil
	if err != nil {
		run.Error = err.Error()
	}

	if finishErr := r.store.FinishRun(ctx, run); finishErr != nil {
		r.log.Error().Err(finishErr).Msg("recording run outcome")
		if err == nil {
			err = finishErr
			run.Success = false
			run.Error = finishErr.Error()
		}
	}

	if err != nil {
		r.log.Error().
			Err(err).
			Str("run_id", run.ID).
			Int("documents", run.Documents).
			Msg("sync failed")
	} else {
		r.log.Info().
			Str("run_id", run.ID).
			Int("documents", run.Documents).
			Int("batches", run.Batches).
			Msg("sync finished")
	}
	r.send(Event{
		Type:      EventFinished,
		Source:    run.Source,
		Mode:      mode,
		Batches:   run.Batches,
		Documents: run.Documents,
		Err:       err,
	})

	return &run, err
}

// dispatch invokes the connector entry mode matching the requested
// sync mode.
func (r *Runner) dispatch(
	ctx context.Context,
	c Connector,
	mode model.SyncMode,
	batchSize int,
	emit fetch.EmitFunc,
) error {
	switch mode {
	case model.SyncModePoll:
		last, err := r.store.LastSuccessfulRun(ctx, c.Type())
		if err != nil {
			return err
		}
		if last == nil {
			// Nothing to filter against yet; a first poll is a
			// full walk.
			return c.LoadAll(ctx, batchSize, emit)
		}
		return c.Poll(ctx, last.StartedAt, batchSize, emit)

	case model.SyncModeResume:
		cursor, err := r.store.GetCursor(ctx, c.Type())
		if err != nil {
			return err
		}
		cp := storeCheckpointer{store: r.store, source: c.Type()}
		if _, err := c.ResumeLoad(ctx, cursor, cp, batchSize, emit); err != nil {
			return err
		}
		// The walk reached the end of the listing; the checkpoint
		// has served its purpose.
		return r.store.ClearCursor(ctx, c.Type())

	default:
		return c.LoadAll(ctx, batchSize, emit)
	}
}

// send delivers an event without blocking; the run never waits on a
// slow or absent consumer.
func (r *Runner) send(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}
