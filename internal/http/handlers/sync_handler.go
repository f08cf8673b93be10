// Offline queue HTTP handlers.
//
// This file exposes the queue's control surface:
//   - GET    /sync/status           (queue state)
//   - GET    /sync/actions          (pending actions in replay order, paginated, ETag)
//   - GET    /sync/actions/{id}     (one pending action)
//   - POST   /sync/actions          (enqueue a raw action, Idempotency-Key aware)
//   - DELETE /sync/actions/{id}     (remove one action)
//   - DELETE /sync/actions          (clear the queue)
//   - POST   /sync/run              (run one sync pass now)
//   - PUT    /sync/connectivity     (report connectivity)
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/http/middleware"
	"github.com/tbourn/recur-sync/internal/repo"
	"github.com/tbourn/recur-sync/internal/services"
	"github.com/tbourn/recur-sync/internal/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ListActionsResponse is a page of pending actions in replay order.
type ListActionsResponse struct {
	Actions    []domain.OfflineAction `json:"actions"`
	Pagination Pagination             `json:"pagination"`
}

// EnqueueActionRequest is a raw deferred mutation.
type EnqueueActionRequest struct {
	Type       domain.ActionType `json:"type" binding:"required" example:"update"`
	Entity     domain.EntityType `json:"entity" binding:"required" example:"subscription"`
	Data       json.RawMessage   `json:"data" binding:"required" swaggertype:"object"`
	MaxRetries int               `json:"max_retries" binding:"gte=0,lte=100" example:"3"`
}

// EnqueueActionResponse describes the queued action. On an idempotent
// replay whose action has already synced, Action is omitted and Pending is
// false.
type EnqueueActionResponse struct {
	ActionID string                `json:"action_id" example:"0191c2b4-8f5e-7a3c-9d2e-123456789abc"`
	Pending  bool                  `json:"pending"`
	Action   *domain.OfflineAction `json:"action,omitempty"`
}

// RunSyncResponse is the outcome of a manual sync pass.
type RunSyncResponse struct {
	Report services.SyncReport `json:"report"`
	State  services.QueueState `json:"state"`
}

// ConnectivityRequest reports whether the remote API is reachable.
type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required" example:"true"`
}

//
// Handlers
//

// GetSyncStatus godoc
// @ID          getSyncStatus
// @Summary     Queue state
// @Description Returns connectivity, pending count, whether a pass is running, the last successful pass time and the last error.
// @Tags        Sync
// @Produce     json
// @Success     200  {object}  services.QueueState
// @Router      /sync/status [get]
func (h *Handlers) GetSyncStatus(c *gin.Context) {
	ok(c, http.StatusOK, h.queue.State())
}

// ListActions godoc
// @ID          listActions
// @Summary     List pending actions
// @Description Returns pending actions in replay order. Supports a weak ETag via If-None-Match.
// @Tags        Sync
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(200) default(50)
// @Success     200  {object}  handlers.ListActionsResponse
// @Header      200  {string}  ETag  "Weak ETag for the current queue"
// @Success     304  {string}  string "Not Modified"
// @Router      /sync/actions [get]
func (h *Handlers) ListActions(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)

	if etag, okTag := h.actionsETag(c.Request.Context(), page); okTag {
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	all := h.queue.PendingActions()
	start, end := page.Bounds(len(all))
	totalPages := page.TotalPages(len(all))
	ok(c, http.StatusOK, ListActionsResponse{
		Actions: append([]domain.OfflineAction{}, all[start:end]...),
		Pagination: Pagination{
			Page:       page.Number,
			PageSize:   page.Size,
			Total:      len(all),
			TotalPages: totalPages,
			HasNext:    page.Number < totalPages,
		},
	})
}

// actionsETag derives a weak validator from the durable queue: row count,
// newest timestamp and total retries change on every enqueue, removal and
// failed attempt.
func (h *Handlers) actionsETag(ctx context.Context, page utils.Page) (string, bool) {
	if h.db == nil {
		return "", false
	}
	count, newest, err := repo.OfflineActionStats(ctx, h.db)
	if err != nil {
		return "", false
	}
	retries, err := repo.RetryTotal(ctx, h.db)
	if err != nil {
		return "", false
	}
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	return fmt.Sprintf(`W/"actions:%d:%d:%d:%d:%d"`, count, ts, retries, page.Number, page.Size), true
}

// GetAction godoc
// @ID          getAction
// @Summary     Get a pending action
// @Tags        Sync
// @Produce     json
// @Param       id   path  string  true  "Action ID"
// @Success     200  {object}  domain.OfflineAction
// @Failure     404  {object}  handlers.ErrorResponse  "Not pending"
// @Router      /sync/actions/{id} [get]
func (h *Handlers) GetAction(c *gin.Context) {
	a, err := h.queue.Get(c.Param("id"))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, a)
}

// EnqueueAction godoc
// @ID          enqueueAction
// @Summary     Enqueue a deferred mutation
// @Description Validates and durably queues a raw action. With an Idempotency-Key, a retried request returns the original action instead of queuing a duplicate.
// @Tags        Sync
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       X-Client-ID      header  string  false "Client identity (defaults to CLIENT_ID)"
// @Param       body             body    handlers.EnqueueActionRequest  true  "Action"
// @Success     201  {object}  handlers.EnqueueActionResponse
// @Success     200  {object}  handlers.EnqueueActionResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /sync/actions [post]
func (h *Handlers) EnqueueAction(c *gin.Context) {
	ctx := c.Request.Context()
	key, hasKey := middleware.GetIdempotencyKey(c)
	scope := middleware.IdempotencyScope(c)
	if scope == "" {
		scope = IdempotencyScopeActions
	}
	client := middleware.ClientID(c)

	if hasKey && middleware.IsReplay(c) && h.db != nil {
		if rec, err := repo.GetIdempotency(ctx, h.db, client, scope, key, h.now()); err == nil {
			h.replayEnqueue(c, rec.ActionID)
			return
		}
	}

	var req EnqueueActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type, entity and data are required; max_retries must be 0..100")
		return
	}

	a, err := h.queue.AddPendingAction(ctx, services.NewAction{
		Type:       req.Type,
		Entity:     req.Entity,
		Data:       req.Data,
		MaxRetries: req.MaxRetries,
	})
	if err != nil {
		failErr(c, err, ErrCodeStorage)
		return
	}

	if hasKey && h.db != nil {
		_, err := repo.CreateIdempotency(ctx, h.db, client, scope, key, a.ID, http.StatusCreated, h.idemTTL)
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			// A concurrent request with the same key won the insert. Keep its
			// action and withdraw ours.
			if rec, gerr := repo.GetIdempotency(ctx, h.db, client, scope, key, h.now()); gerr == nil {
				if rerr := h.queue.RemovePendingAction(ctx, a.ID); rerr != nil {
					failErr(c, rerr, ErrCodeStorage)
					return
				}
				h.replayEnqueue(c, rec.ActionID)
				return
			}
		case err != nil:
			middleware.LoggerFrom(c).Warn().Err(err).Str("action_id", a.ID).Msg("idempotency record not stored")
		}
	}
	ok(c, http.StatusCreated, EnqueueActionResponse{ActionID: a.ID, Pending: true, Action: a})
}

func (h *Handlers) replayEnqueue(c *gin.Context, actionID string) {
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	a, err := h.queue.Get(actionID)
	if err != nil {
		ok(c, http.StatusOK, EnqueueActionResponse{ActionID: actionID})
		return
	}
	ok(c, http.StatusOK, EnqueueActionResponse{ActionID: actionID, Pending: true, Action: a})
}

// DeleteAction godoc
// @ID          deleteAction
// @Summary     Remove a pending action
// @Description Removes the action from storage and memory. Unknown ids succeed.
// @Tags        Sync
// @Param       id   path  string  true  "Action ID"
// @Success     204  {string}  string  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /sync/actions/{id} [delete]
func (h *Handlers) DeleteAction(c *gin.Context) {
	if err := h.queue.RemovePendingAction(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err, ErrCodeStorage)
		return
	}
	noContent(c)
}

// ClearActions godoc
// @ID          clearActions
// @Summary     Clear the queue
// @Tags        Sync
// @Success     204  {string}  string  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /sync/actions [delete]
func (h *Handlers) ClearActions(c *gin.Context) {
	if err := h.queue.ClearPendingActions(c.Request.Context()); err != nil {
		failErr(c, err, ErrCodeStorage)
		return
	}
	noContent(c)
}

// RunSync godoc
// @ID          runSync
// @Summary     Run a sync pass
// @Description Replays pending actions now. Skipped is true when offline, already syncing or empty.
// @Tags        Sync
// @Produce     json
// @Success     200  {object}  handlers.RunSyncResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Pass aborted"
// @Router      /sync/run [post]
func (h *Handlers) RunSync(c *gin.Context) {
	// A client hanging up must not abort the pass half-way.
	report, err := h.queue.SyncPendingActions(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		failErr(c, err, ErrCodeSyncFailed)
		return
	}
	ok(c, http.StatusOK, RunSyncResponse{Report: report, State: h.queue.State()})
}

// SetConnectivity godoc
// @ID          setConnectivity
// @Summary     Report connectivity
// @Description Going online starts a background sync pass.
// @Tags        Sync
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ConnectivityRequest  true  "Connectivity"
// @Success     200  {object}  services.QueueState
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /sync/connectivity [put]
func (h *Handlers) SetConnectivity(c *gin.Context) {
	var req ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "online (bool) is required")
		return
	}
	h.queue.SetOnlineStatus(c.Request.Context(), *req.Online)
	ok(c, http.StatusOK, h.queue.State())
}
