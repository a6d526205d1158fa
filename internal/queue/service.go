package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-field/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
)

// Store is the durable queue of deferred remote operations. Every mutation
// performs a full read-modify-write of the persisted list, serialized behind
// a single mutex so interleaved callers never operate on a stale copy.
type Store struct {
	mu   sync.Mutex
	repo Repository
	logg *logger.Logger
}

// StoreParams configure the queue store.
type StoreParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// NewStore wires queue store dependencies.
func NewStore(params StoreParams) (*Store, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "queue repository required")
	}
	return &Store{repo: params.Repo, logg: params.Logger}, nil
}

// Enqueue appends a new pending entry and persists it. A storage failure
// propagates to the producer: an offline write that silently fails is data
// loss.
func (s *Store) Enqueue(ctx context.Context, op enums.OperationType, payload json.RawMessage) (*Entry, error) {
	if op == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operation type required")
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	entry := Entry{
		ID:       uuid.NewString(),
		Type:     op,
		Payload:  payload,
		QueuedAt: time.Now().UTC(),
		Status:   enums.EntryPending,
	}
	entries = append(entries, entry)

	if err := s.repo.Save(ctx, entries); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithEntryID(ctx, entry.ID)
		logCtx = s.logg.WithOperation(logCtx, string(op))
		s.logg.Info(logCtx, "queue entry added")
	}
	return &entry, nil
}

// DequeueFirstPending removes and returns the first pending entry in list
// order, skipping syncing and failed entries. Returns nil when nothing is
// pending.
func (s *Store) DequeueFirstPending(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	for i, entry := range entries {
		if entry.Status != enums.EntryPending {
			continue
		}
		remaining := append(append([]Entry{}, entries[:i]...), entries[i+1:]...)
		if err := s.repo.Save(ctx, remaining); err != nil {
			return nil, err
		}
		popped := entry
		return &popped, nil
	}
	return nil, nil
}

// GetAll returns a full snapshot in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Load(ctx)
}

// RemoveByID deletes the matching entry; missing ids are a no-op.
func (s *Store) RemoveByID(ctx context.Context, id string) error {
	return s.mutate(ctx, func(entries []Entry) []Entry {
		for i, entry := range entries {
			if entry.ID == id {
				return append(entries[:i], entries[i+1:]...)
			}
		}
		return entries
	})
}

// MarkSyncing transitions the entry to syncing. Missing ids are a no-op so
// a mutator racing a concurrent removal stays idempotent.
func (s *Store) MarkSyncing(ctx context.Context, id string) error {
	return s.mutateEntry(ctx, id, func(entry *Entry) {
		entry.Status = enums.EntrySyncing
	})
}

// MarkFailed records a failed replay attempt: status failed, retry count
// incremented, last error replaced.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	return s.mutateEntry(ctx, id, func(entry *Entry) {
		entry.Status = enums.EntryFailed
		entry.RetryCount++
		msg := message
		entry.LastError = &msg
	})
}

// MarkPending resets the entry for another attempt. RetryCount and LastError
// are left intact so the inspector keeps the failure context visible.
func (s *Store) MarkPending(ctx context.Context, id string) error {
	return s.mutateEntry(ctx, id, func(entry *Entry) {
		entry.Status = enums.EntryPending
	})
}

// PendingCount counts entries still awaiting confirmation (pending or
// syncing).
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	entries, err := s.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.Status == enums.EntryPending || entry.Status == enums.EntrySyncing {
			count++
		}
	}
	return count, nil
}

// FailedItems returns all failed entries in insertion order.
func (s *Store) FailedItems(ctx context.Context) ([]Entry, error) {
	entries, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var failed []Entry
	for _, entry := range entries {
		if entry.Status == enums.EntryFailed {
			failed = append(failed, entry)
		}
	}
	return failed, nil
}

// TotalCount counts every entry regardless of status.
func (s *Store) TotalCount(ctx context.Context) (int, error) {
	entries, err := s.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// GetCounts returns the inspector summary in one snapshot.
func (s *Store) GetCounts(ctx context.Context) (Counts, error) {
	entries, err := s.GetAll(ctx)
	if err != nil {
		return Counts{}, err
	}
	counts := Counts{Total: len(entries)}
	for _, entry := range entries {
		switch entry.Status {
		case enums.EntryPending, enums.EntrySyncing:
			counts.Pending++
		case enums.EntryFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

// ClearAll deletes every entry unconditionally.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Save(ctx, nil)
}

// ResetStuckSyncing demotes entries left in syncing by a killed process back
// to pending. Called once at agent boot, never during a pass.
func (s *Store) ResetStuckSyncing(ctx context.Context) (int, error) {
	reset := 0
	err := s.mutate(ctx, func(entries []Entry) []Entry {
		for i := range entries {
			if entries[i].Status == enums.EntrySyncing {
				entries[i].Status = enums.EntryPending
				reset++
			}
		}
		return entries
	})
	if err != nil {
		return 0, err
	}
	if reset > 0 && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "count", reset)
		s.logg.Warn(logCtx, "reset entries stuck in syncing")
	}
	return reset, nil
}

func (s *Store) mutate(ctx context.Context, fn func([]Entry) []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, fn(entries))
}

func (s *Store) mutateEntry(ctx context.Context, id string, fn func(*Entry)) error {
	return s.mutate(ctx, func(entries []Entry) []Entry {
		for i := range entries {
			if entries[i].ID == id {
				fn(&entries[i])
				break
			}
		}
		return entries
	})
}
