// Package services – SyncQueue
//
// This file implements SyncQueue, the durable offline action queue. Mutations
// made while the Recur API is unreachable are recorded as OfflineAction rows,
// kept in timestamp order in memory and in the ActionStore, and replayed one
// at a time once connectivity returns.
//
// Lifecycle of an action: enqueued (persisted, then appended) → attempted
// during a sync pass → removed on success, or retry_count incremented and
// re-persisted on failure → removed once retry_count reaches max_retries.
//
// Concurrency: all state lives behind one mutex. The in-progress flag is
// checked and set under that mutex, so at most one pass runs at a time no
// matter how many goroutines trigger it. Remote calls happen outside the
// lock; storage writes happen under it, before the in-memory change.
//
// Observability: each pass gets an "offline.sync_pass" span with one
// "offline.sync_action" child per attempted action, and feeds the
// recur_offline_* Prometheus collectors.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/recur-sync/internal/domain"
)

// maxLastErrorLen caps the error text stored on an action.
const maxLastErrorLen = 512

// NewAction is an action as submitted by a producer, before the queue
// assigns its ID, timestamp and retry bookkeeping.
type NewAction struct {
	Type       domain.ActionType `json:"type"`
	Entity     domain.EntityType `json:"entity"`
	Data       json.RawMessage   `json:"data"`
	MaxRetries int               `json:"max_retries,omitempty"` // 0 = queue default
}

// QueueState is a point-in-time copy of the queue's observable state.
type QueueState struct {
	IsOnline       bool       `json:"is_online"`
	PendingCount   int        `json:"pending_count"`
	SyncInProgress bool       `json:"sync_in_progress"`
	LastSyncTime   *time.Time `json:"last_sync_time"`
	Error          *string    `json:"error"`
}

// SyncReport summarizes one call to SyncPendingActions.
type SyncReport struct {
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	Retried   int  `json:"retried"`
	Dropped   int  `json:"dropped"`
	Skipped   bool `json:"skipped"`
}

// QueueOptions tunes a SyncQueue. Zero values pick the defaults.
type QueueOptions struct {
	// DefaultMaxRetries applies to actions enqueued without a ceiling.
	DefaultMaxRetries int

	// StartOffline makes the queue begin in the offline state.
	StartOffline bool

	Logger *zerolog.Logger
	Now    func() time.Time
	NewID  func() (string, error)
}

// SyncQueue is the offline action queue. Create it once with NewSyncQueue
// and share the pointer with every producer and trigger.
type SyncQueue struct {
	store      ActionStore
	remote     RemoteServices
	log        zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() (string, error)
	maxRetries int

	mu       sync.Mutex
	online   bool
	pending  []domain.OfflineAction
	syncing  bool
	lastSync *time.Time
	lastErr  string

	bg sync.WaitGroup
}

// NewSyncQueue builds an empty queue over store and rs. Call
// LoadPendingActions before use to pick up work from a previous run.
func NewSyncQueue(store ActionStore, rs RemoteServices, opts QueueOptions) *SyncQueue {
	q := &SyncQueue{
		store:      store,
		remote:     rs,
		tracer:     otel.Tracer("services/SyncQueue"),
		now:        opts.Now,
		newID:      opts.NewID,
		maxRetries: opts.DefaultMaxRetries,
		online:     !opts.StartOffline,
	}
	if opts.Logger != nil {
		q.log = opts.Logger.With().Str("component", "sync_queue").Logger()
	} else {
		q.log = log.With().Str("component", "sync_queue").Logger()
	}
	if q.now == nil {
		q.now = time.Now
	}
	if q.newID == nil {
		q.newID = func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
	}
	if q.maxRetries <= 0 {
		q.maxRetries = domain.DefaultMaxRetries
	}
	return q
}

// SetOnlineStatus records connectivity. When online and no pass is running
// and work is pending, a pass starts in the background; the caller does not
// wait for it. Repeated calls with the same value are harmless.
func (q *SyncQueue) SetOnlineStatus(ctx context.Context, online bool) {
	q.mu.Lock()
	prev := q.online
	q.online = online
	trigger := online && !q.syncing && len(q.pending) > 0
	q.mu.Unlock()

	if prev != online {
		q.log.Info().Bool("online", online).Msg("connectivity changed")
	}
	if !trigger {
		return
	}

	q.bg.Add(1)
	go func() {
		defer q.bg.Done()
		// The pass outlives the trigger (e.g. an HTTP request).
		_, _ = q.SyncPendingActions(context.WithoutCancel(ctx))
	}()
}

// AddPendingAction validates draft, assigns ID and timestamp, persists it
// and appends it to the pending list. If the durable write fails nothing is
// appended, the queue's error is set and no action is returned.
func (q *SyncQueue) AddPendingAction(ctx context.Context, draft NewAction) (*domain.OfflineAction, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	id, err := q.newID()
	if err != nil {
		return nil, fmt.Errorf("generate action id: %w", err)
	}
	maxRetries := draft.MaxRetries
	if maxRetries == 0 {
		maxRetries = q.maxRetries
	}
	a := domain.OfflineAction{
		ID:         id,
		Type:       draft.Type,
		Entity:     draft.Entity,
		Data:       cloneRaw(draft.Data),
		Timestamp:  q.now().UTC(),
		RetryCount: 0,
		MaxRetries: maxRetries,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Store(ctx, &a); err != nil {
		q.lastErr = fmt.Sprintf("failed to store offline action: %v", err)
		q.log.Error().Err(err).Str("entity", string(a.Entity)).Str("type", string(a.Type)).Msg("enqueue failed")
		return nil, fmt.Errorf("store offline action: %w", err)
	}
	q.pending = append(q.pending, a)
	q.publishLocked()

	q.log.Debug().Str("action_id", a.ID).Str("entity", string(a.Entity)).Str("type", string(a.Type)).Msg("action enqueued")
	out := a
	return &out, nil
}

// RemovePendingAction deletes the action from storage, then from memory.
// Unknown IDs are not an error.
func (q *SyncQueue) RemovePendingAction(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(ctx, id)
}

// LoadPendingActions replaces the in-memory list with the durable contents,
// ordered by timestamp. Call once at startup.
func (q *SyncQueue) LoadPendingActions(ctx context.Context) error {
	actions, err := q.store.List(ctx)
	if err != nil {
		q.mu.Lock()
		q.lastErr = fmt.Sprintf("failed to load offline actions: %v", err)
		q.mu.Unlock()
		return fmt.Errorf("load offline actions: %w", err)
	}
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Timestamp.Equal(actions[j].Timestamp) {
			return actions[i].ID < actions[j].ID
		}
		return actions[i].Timestamp.Before(actions[j].Timestamp)
	})

	q.mu.Lock()
	q.pending = actions
	q.publishLocked()
	q.mu.Unlock()

	q.log.Info().Int("pending", len(actions)).Msg("offline actions loaded")
	return nil
}

// ClearPendingActions wipes storage and memory unconditionally.
func (q *SyncQueue) ClearPendingActions(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear offline actions: %w", err)
	}
	q.pending = nil
	q.publishLocked()
	q.log.Info().Msg("offline actions cleared")
	return nil
}

// SyncPendingActions runs one pass over the pending list. It is a no-op
// (Skipped) when offline, when a pass is already running or when nothing is
// pending.
//
// Actions are attempted one at a time in list order, including actions
// enqueued while the pass runs. Remote failures are absorbed into retry or
// drop bookkeeping and never returned. A storage failure, a cancelled ctx or
// a panic aborts the pass: the error is recorded in the queue state and
// returned, and last_sync_time is left unchanged.
func (q *SyncQueue) SyncPendingActions(ctx context.Context) (report SyncReport, err error) {
	if !q.beginPass() {
		syncPasses.WithLabelValues(passSkipped).Inc()
		return SyncReport{Skipped: true}, nil
	}

	ctx, span := q.tracer.Start(ctx, "offline.sync_pass")
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errSyncPanic, r)
		}
		q.endPass(err)
		passDuration.Observe(time.Since(start).Seconds())

		span.SetAttributes(
			attribute.Int("sync.attempted", report.Attempted),
			attribute.Int("sync.succeeded", report.Succeeded),
			attribute.Int("sync.retried", report.Retried),
			attribute.Int("sync.dropped", report.Dropped),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			syncPasses.WithLabelValues(passFailed).Inc()
			q.log.Error().Err(err).Int("attempted", report.Attempted).Msg("sync pass aborted")
		} else {
			syncPasses.WithLabelValues(passCompleted).Inc()
			q.log.Info().
				Int("attempted", report.Attempted).
				Int("succeeded", report.Succeeded).
				Int("retried", report.Retried).
				Int("dropped", report.Dropped).
				Msg("sync pass completed")
		}
		span.End()
	}()

	visited := make(map[string]struct{})
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, fmt.Errorf("sync pass interrupted: %w", ctxErr)
		}
		a, ok := q.nextUnvisited(visited)
		if !ok {
			break
		}
		visited[a.ID] = struct{}{}
		report.Attempted++

		outcome, perr := q.processAction(ctx, a)
		if perr != nil {
			return report, perr
		}
		switch outcome {
		case outcomeSynced:
			report.Succeeded++
		case outcomeRetried:
			report.Retried++
		case outcomeDropped:
			report.Dropped++
		}
	}
	return report, nil
}

// PendingActions returns a copy of the pending list in processing order.
func (q *SyncQueue) PendingActions() []domain.OfflineAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OfflineAction, len(q.pending))
	for i, a := range q.pending {
		a.Data = cloneRaw(a.Data)
		out[i] = a
	}
	return out
}

// PendingCount returns the length of the pending list.
func (q *SyncQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Get returns a copy of the pending action with the given ID.
func (q *SyncQueue) Get(id string) (*domain.OfflineAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := q.indexLocked(id)
	if idx < 0 {
		return nil, ErrActionNotFound
	}
	a := q.pending[idx]
	a.Data = cloneRaw(a.Data)
	return &a, nil
}

// IsOnline reports the last connectivity value set.
func (q *SyncQueue) IsOnline() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// State returns a snapshot of the queue state.
func (q *SyncQueue) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := QueueState{
		IsOnline:       q.online,
		PendingCount:   len(q.pending),
		SyncInProgress: q.syncing,
	}
	if q.lastSync != nil {
		t := *q.lastSync
		st.LastSyncTime = &t
	}
	if q.lastErr != "" {
		e := q.lastErr
		st.Error = &e
	}
	return st
}

// Wait blocks until every background pass started by SetOnlineStatus has
// returned.
func (q *SyncQueue) Wait() { q.bg.Wait() }

// beginPass is the atomic guard-and-set of a pass.
func (q *SyncQueue) beginPass() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.online || q.syncing || len(q.pending) == 0 {
		return false
	}
	q.syncing = true
	q.lastErr = ""
	return true
}

func (q *SyncQueue) endPass(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		q.lastErr = err.Error()
	} else {
		t := q.now().UTC()
		q.lastSync = &t
	}
	q.syncing = false
}

// nextUnvisited returns the first action in list order not yet attempted in
// this pass. Reading the live list (not a snapshot) lets the pass reach
// actions appended after it started.
func (q *SyncQueue) nextUnvisited(visited map[string]struct{}) (domain.OfflineAction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.pending {
		if _, seen := visited[a.ID]; !seen {
			a.Data = cloneRaw(a.Data)
			return a, true
		}
	}
	return domain.OfflineAction{}, false
}

// processAction replays a and applies the bookkeeping for its outcome. A
// non-nil error is a pass-level failure; remote failures are not errors here.
func (q *SyncQueue) processAction(ctx context.Context, a domain.OfflineAction) (string, error) {
	actx, span := q.tracer.Start(ctx, "offline.sync_action",
		trace.WithAttributes(
			attribute.String("action.id", a.ID),
			attribute.String("action.entity", string(a.Entity)),
			attribute.String("action.type", string(a.Type)),
			attribute.Int("action.retry_count", a.RetryCount),
		),
	)
	defer span.End()

	callErr := q.invoke(actx, a)
	if callErr == nil {
		if err := q.RemovePendingAction(ctx, a.ID); err != nil {
			return "", err
		}
		actionAttempts.WithLabelValues(string(a.Entity), string(a.Type), outcomeSynced).Inc()
		span.SetAttributes(attribute.String("action.outcome", outcomeSynced))
		q.log.Debug().Str("action_id", a.ID).Msg("action synced")
		return outcomeSynced, nil
	}

	span.RecordError(callErr)
	outcome, err := q.recordFailure(ctx, a.ID, callErr)
	if err != nil {
		return "", err
	}
	if outcome != "" {
		actionAttempts.WithLabelValues(string(a.Entity), string(a.Type), outcome).Inc()
		span.SetAttributes(attribute.String("action.outcome", outcome))
	}
	return outcome, nil
}

// invoke dispatches a to its remote operation. A panicking handler counts as
// a failed attempt.
func (q *SyncQueue) invoke(ctx context.Context, a domain.OfflineAction) (err error) {
	h, ok := dispatch[dispatchKey{a.Entity, a.Type}]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrUnsupportedAction, a.Type, a.Entity)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remote handler panicked: %v", r)
		}
	}()
	return h(ctx, q.remote, a.Data)
}

// recordFailure bumps the retry count of the live copy of id and either
// re-persists it or drops it. It returns "" when the action was removed
// while its remote call was in flight.
func (q *SyncQueue) recordFailure(ctx context.Context, id string, callErr error) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexLocked(id)
	if idx < 0 {
		return "", nil
	}
	a := q.pending[idx]
	a.RetryCount++
	a.LastError = truncate(callErr.Error(), maxLastErrorLen)

	ev := q.log.With().
		Str("action_id", a.ID).
		Str("entity", string(a.Entity)).
		Str("type", string(a.Type)).
		Int("retry_count", a.RetryCount).
		Int("max_retries", a.MaxRetries).
		Logger()

	if a.RetryCount >= a.MaxRetries {
		if err := q.store.Remove(ctx, a.ID); err != nil {
			return "", fmt.Errorf("drop offline action %s: %w", a.ID, err)
		}
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
		q.publishLocked()
		ev.Warn().Err(callErr).Msg("action dropped after max retries")
		return outcomeDropped, nil
	}

	if err := q.store.Store(ctx, &a); err != nil {
		return "", fmt.Errorf("persist retry of offline action %s: %w", a.ID, err)
	}
	q.pending[idx] = a
	ev.Debug().Err(callErr).Msg("action failed, will retry")
	return outcomeRetried, nil
}

func (q *SyncQueue) removeLocked(ctx context.Context, id string) error {
	if err := q.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove offline action %s: %w", id, err)
	}
	if idx := q.indexLocked(id); idx >= 0 {
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
		q.publishLocked()
	}
	return nil
}

func (q *SyncQueue) indexLocked(id string) int {
	for i := range q.pending {
		if q.pending[i].ID == id {
			return i
		}
	}
	return -1
}

func (q *SyncQueue) publishLocked() {
	pendingGauge.Set(float64(len(q.pending)))
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
