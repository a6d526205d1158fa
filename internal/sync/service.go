package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/packfinderz-field/internal/queue"
	"github.com/angelmondragon/packfinderz-field/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
	"github.com/angelmondragon/packfinderz-field/pkg/metrics"
)

const genericFailure = "sync failed"

// Engine replays pending queue entries against the backend in FIFO order.
// A single-flight flag owned by the engine instance suppresses concurrent
// passes; a second caller gets an immediate zero result.
type Engine struct {
	store    *queue.Store
	replayer Replayer
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics
	inFlight atomic.Bool
}

// EngineParams configure the sync engine.
type EngineParams struct {
	Store    *queue.Store
	Replayer Replayer
	Logger   *logger.Logger
	Metrics  *metrics.SyncMetrics
}

// NewEngine wires sync engine dependencies.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "queue store required")
	}
	if params.Replayer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "replayer required")
	}
	return &Engine{
		store:    params.Store,
		replayer: params.Replayer,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Sync drains all currently-pending entries in snapshot order. Entries left
// in syncing by a prior incomplete pass are not picked up. Per-entry
// failures are contained: they mark that entry failed and the pass moves
// on. Sync never returns an error to its caller.
func (e *Engine) Sync(ctx context.Context, onProgress ProgressFunc) Result {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.metrics.IncPassSkipped()
		if e.logg != nil {
			e.logg.Debug(ctx, "sync pass already running, skipping")
		}
		return Result{}
	}
	defer e.inFlight.Store(false)

	start := time.Now()

	entries, err := e.store.GetAll(ctx)
	if err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "reading queue for sync pass", err)
		}
		return Result{}
	}

	var result Result
	var passErrs error

	for _, entry := range entries {
		if entry.Status != enums.EntryPending {
			continue
		}
		result.Attempted++
		if err := e.processEntry(ctx, entry); err != nil {
			result.Failed++
			passErrs = multierr.Append(passErrs, fmt.Errorf("entry %s: %w", entry.ID, err))
		} else {
			result.Succeeded++
		}
		if onProgress != nil {
			onProgress(result)
		}
	}

	e.metrics.ObservePass(time.Since(start))

	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"attempted": result.Attempted,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		})
		if passErrs != nil {
			e.logg.Warn(logCtx, "sync pass completed with failures")
			e.logg.Error(logCtx, "sync pass entry errors", passErrs)
		} else if result.Attempted > 0 {
			e.logg.Info(logCtx, "sync pass completed")
		}
	}

	return result
}

// RetryItem attempts one entry by id and reports whether it synced. It runs
// outside the pass lock on purpose: a single-item retry from the inspector
// may interleave with a full pass, and the store's own mutex keeps the data
// safe when they do.
func (e *Engine) RetryItem(ctx context.Context, id string) (bool, error) {
	entries, err := e.store.GetAll(ctx)
	if err != nil {
		return false, err
	}

	var target *queue.Entry
	for i := range entries {
		if entries[i].ID == id {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return false, nil
	}

	return e.processEntry(ctx, *target) == nil, nil
}

// RetryAllFailed resets every failed entry to pending, then runs a full
// pass.
func (e *Engine) RetryAllFailed(ctx context.Context, onProgress ProgressFunc) Result {
	failed, err := e.store.FailedItems(ctx)
	if err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "reading failed entries for bulk retry", err)
		}
		return Result{}
	}

	for _, entry := range failed {
		if err := e.store.MarkPending(ctx, entry.ID); err != nil {
			if e.logg != nil {
				e.logg.Error(e.logg.WithEntryID(ctx, entry.ID), "resetting failed entry", err)
			}
		}
	}

	return e.Sync(ctx, onProgress)
}

// processEntry replays one entry: syncing, then removal on success or
// failed with a populated last error. Storage errors while recording the
// outcome are logged and treated as a failed attempt.
func (e *Engine) processEntry(ctx context.Context, entry queue.Entry) error {
	logCtx := ctx
	if e.logg != nil {
		logCtx = e.logg.WithEntryID(ctx, entry.ID)
		logCtx = e.logg.WithOperation(logCtx, string(entry.Type))
	}

	if err := e.store.MarkSyncing(ctx, entry.ID); err != nil {
		if e.logg != nil {
			e.logg.Error(logCtx, "marking entry syncing", err)
		}
		e.metrics.IncEntryFailure(string(entry.Type))
		return err
	}

	if err := e.replayer.Replay(ctx, entry.Type, entry.Payload); err != nil {
		message := failureMessage(err)
		if markErr := e.store.MarkFailed(ctx, entry.ID, message); markErr != nil && e.logg != nil {
			e.logg.Error(logCtx, "recording entry failure", markErr)
		}
		e.metrics.IncEntryFailure(string(entry.Type))
		if e.logg != nil {
			e.logg.Warn(e.logg.WithField(logCtx, "reason", message), "queue entry replay failed")
		}
		return err
	}

	if err := e.store.RemoveByID(ctx, entry.ID); err != nil {
		// The remote accepted the call but the local delete failed; the
		// entry will replay again and the backend must tolerate it.
		if e.logg != nil {
			e.logg.Error(logCtx, "removing synced entry", err)
		}
		e.metrics.IncEntryFailure(string(entry.Type))
		return err
	}

	e.metrics.IncEntrySuccess(string(entry.Type))
	if e.logg != nil {
		e.logg.Info(logCtx, "queue entry synced")
	}
	return nil
}

// failureMessage extracts the most useful human-readable message: the coded
// error's message (which carries the server-provided text when present),
// then the raw error string, then a generic fallback.
func failureMessage(err error) string {
	if err == nil {
		return genericFailure
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericFailure
}
