package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	syncpkg "github.com/angelmondragon/packfinderz-field/internal/sync"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
)

const defaultDebounce = 1500 * time.Millisecond

// Reachability is the tri-state internet reachability reported by the
// platform: the link can be up while the internet is not.
type Reachability string

const (
	ReachabilityUnknown     Reachability = "unknown"
	ReachabilityReachable   Reachability = "reachable"
	ReachabilityUnreachable Reachability = "unreachable"
)

// State is one observation from the platform connectivity stream.
type State struct {
	Connected    bool
	Reachability Reachability
}

// online reports whether the state counts as usable: connected and either
// reachable or reachability not yet determined.
func (s State) online() bool {
	return s.Connected && s.Reachability != ReachabilityUnreachable
}

// Syncer is the engine surface the monitor drives.
type Syncer interface {
	Sync(ctx context.Context, onProgress syncpkg.ProgressFunc) syncpkg.Result
}

// Counter is the store surface the monitor reads its badge count from.
// Total count, not pending, so failed entries keep the queue visible.
type Counter interface {
	TotalCount(ctx context.Context) (int, error)
}

// Monitor bridges device connectivity into sync triggers and UI-observable
// state. It owns no queue data.
type Monitor struct {
	engine   Syncer
	store    Counter
	logg     *logger.Logger
	debounce time.Duration

	mu           sync.Mutex
	runCtx       context.Context
	state        State
	syncing      bool
	pendingCount int
	timer        *time.Timer
}

// Snapshot is the observable state served to the UI.
type Snapshot struct {
	IsConnected         bool         `json:"isConnected"`
	IsInternetReachable Reachability `json:"isInternetReachable"`
	IsSyncing           bool         `json:"isSyncing"`
	PendingCount        int          `json:"pendingCount"`
}

// MonitorParams configure the connectivity monitor.
type MonitorParams struct {
	Engine   Syncer
	Store    Counter
	Logger   *logger.Logger
	Debounce time.Duration
}

// NewMonitor wires monitor dependencies.
func NewMonitor(params MonitorParams) (*Monitor, error) {
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sync engine required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "queue store required")
	}
	debounce := params.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Monitor{
		engine:   params.Engine,
		store:    params.Store,
		logg:     params.Logger,
		debounce: debounce,
		state:    State{Connected: false, Reachability: ReachabilityUnknown},
	}, nil
}

// Start primes the pending count so a cold start with queued items shows a
// non-zero badge, then consumes the platform state stream until the context
// is canceled or the stream closes.
func (m *Monitor) Start(ctx context.Context, states <-chan State) {
	m.mu.Lock()
	m.runCtx = ctx
	m.mu.Unlock()

	m.RefreshPendingCount(ctx)
	if states == nil {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				m.cancelPendingTrigger()
				return
			case state, ok := <-states:
				if !ok {
					m.cancelPendingTrigger()
					return
				}
				m.HandleStateChange(ctx, state)
			}
		}
	}()
}

// HandleStateChange records the new connectivity state and, on an
// offline-to-online edge, schedules a debounced sync. A flap back offline
// before the debounce fires cancels the scheduled trigger.
func (m *Monitor) HandleStateChange(ctx context.Context, state State) {
	m.mu.Lock()
	wasOnline := m.state.online()
	m.state = state
	nowOnline := state.online()

	if !nowOnline && m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	if !wasOnline && nowOnline {
		if m.timer != nil {
			m.timer.Stop()
		}
		// The reporting request's context dies when its handler returns,
		// so scheduled work runs on the monitor's own context.
		m.timer = time.AfterFunc(m.debounce, func() {
			m.onDebounceFired(m.triggerContext())
		})
		if m.logg != nil {
			m.logg.Info(m.logg.WithField(ctx, "debounce_ms", m.debounce.Milliseconds()), "reconnected, sync scheduled")
		}
	}
	m.mu.Unlock()
}

// onDebounceFired re-checks the connection before syncing: the timer may
// have raced a disconnect that arrived between scheduling and firing.
func (m *Monitor) onDebounceFired(ctx context.Context) {
	m.mu.Lock()
	stillOnline := m.state.online()
	m.timer = nil
	m.mu.Unlock()

	if !stillOnline {
		if m.logg != nil {
			m.logg.Debug(ctx, "connection dropped before debounce fired, sync skipped")
		}
		return
	}
	m.TriggerSync(ctx)
}

// TriggerSync runs a sync pass on behalf of the UI or a reconnection event.
// It always clears the syncing flag and refreshes the pending count, and a
// panicking pass must not take the monitor down with it.
func (m *Monitor) TriggerSync(ctx context.Context) syncpkg.Result {
	m.setSyncing(true)
	defer m.setSyncing(false)
	defer func() {
		if r := recover(); r != nil && m.logg != nil {
			m.logg.Error(ctx, "sync pass panicked", fmt.Errorf("panic: %v", r))
		}
		m.RefreshPendingCount(ctx)
	}()

	var progress syncpkg.ProgressFunc
	if m.logg != nil {
		progress = func(result syncpkg.Result) {
			logCtx := m.logg.WithFields(ctx, map[string]any{
				"attempted": result.Attempted,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			})
			m.logg.Debug(logCtx, "sync progress")
		}
	}

	return m.engine.Sync(ctx, progress)
}

// RefreshPendingCount re-reads the total entry count. A read failure keeps
// the previous value rather than zeroing the badge.
func (m *Monitor) RefreshPendingCount(ctx context.Context) {
	total, err := m.store.TotalCount(ctx)
	if err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, "refreshing pending count", err)
		}
		return
	}
	m.mu.Lock()
	m.pendingCount = total
	m.mu.Unlock()
}

// Status returns the current observable state.
func (m *Monitor) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		IsConnected:         m.state.Connected,
		IsInternetReachable: m.state.Reachability,
		IsSyncing:           m.syncing,
		PendingCount:        m.pendingCount,
	}
}

func (m *Monitor) setSyncing(value bool) {
	m.mu.Lock()
	m.syncing = value
	m.mu.Unlock()
}

// triggerContext returns the long-lived context given to Start, falling
// back to the background context when the monitor was never started.
func (m *Monitor) triggerContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx != nil {
		return m.runCtx
	}
	return context.Background()
}

func (m *Monitor) cancelPendingTrigger() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
}
