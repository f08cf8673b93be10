// Entity mutation HTTP handlers.
//
// Writes go through the mutation gateway: applied against the Recur API
// when it is reachable (200 with the remote result), otherwise deferred to
// the offline queue (202 with the queued action).
//   - POST   /subscriptions        PUT/DELETE /subscriptions/{id}
//   - POST   /categories           PUT/DELETE /categories/{id}
//   - PUT    /users/me
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/http/middleware"
	"github.com/tbourn/recur-sync/internal/services"
)

const (
	outcomeApplied = "applied"
	outcomeQueued  = "queued"
)

// respondMutation writes 200 with the applied value or 202 with the queued
// action.
func respondMutation[T any](c *gin.Context, entity domain.EntityType, typ domain.ActionType, res *services.MutationResult[T], err error) {
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	if res.Queued {
		middleware.ObserveMutation(string(entity), string(typ), outcomeQueued)
		ok(c, http.StatusAccepted, res.Action)
		return
	}
	middleware.ObserveMutation(string(entity), string(typ), outcomeApplied)
	ok(c, http.StatusOK, res.Value)
}

// bindEntity decodes the JSON body into dst, answering 400 on failure.
func bindEntity(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// CreateSubscription godoc
// @ID          createSubscription
// @Summary     Create a subscription
// @Tags        Subscriptions
// @Accept      json
// @Produce     json
// @Param       body  body  domain.Subscription  true  "Subscription"
// @Success     200  {object}  domain.Subscription   "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     502  {object}  handlers.ErrorResponse
// @Router      /subscriptions [post]
func (h *Handlers) CreateSubscription(c *gin.Context) {
	var sub domain.Subscription
	if !bindEntity(c, &sub) {
		return
	}
	res, err := h.mut.CreateSubscription(c.Request.Context(), sub)
	respondMutation(c, domain.EntitySubscription, domain.ActionCreate, res, err)
}

// UpdateSubscription godoc
// @ID          updateSubscription
// @Summary     Update a subscription
// @Tags        Subscriptions
// @Accept      json
// @Produce     json
// @Param       id    path  string               true  "Subscription ID"
// @Param       body  body  domain.Subscription  true  "Subscription"
// @Success     200  {object}  domain.Subscription   "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Rejected by the Recur API"
// @Router      /subscriptions/{id} [put]
func (h *Handlers) UpdateSubscription(c *gin.Context) {
	var sub domain.Subscription
	if !bindEntity(c, &sub) {
		return
	}
	res, err := h.mut.UpdateSubscription(c.Request.Context(), c.Param("id"), sub)
	respondMutation(c, domain.EntitySubscription, domain.ActionUpdate, res, err)
}

// DeleteSubscription godoc
// @ID          deleteSubscription
// @Summary     Delete a subscription
// @Tags        Subscriptions
// @Produce     json
// @Param       id  path  string  true  "Subscription ID"
// @Success     200  {object}  domain.EntityRef      "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Router      /subscriptions/{id} [delete]
func (h *Handlers) DeleteSubscription(c *gin.Context) {
	res, err := h.mut.DeleteSubscription(c.Request.Context(), c.Param("id"))
	respondMutation(c, domain.EntitySubscription, domain.ActionDelete, res, err)
}

// CreateCategory godoc
// @ID          createCategory
// @Summary     Create a category
// @Tags        Categories
// @Accept      json
// @Produce     json
// @Param       body  body  domain.Category  true  "Category"
// @Success     200  {object}  domain.Category       "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /categories [post]
func (h *Handlers) CreateCategory(c *gin.Context) {
	var cat domain.Category
	if !bindEntity(c, &cat) {
		return
	}
	res, err := h.mut.CreateCategory(c.Request.Context(), cat)
	respondMutation(c, domain.EntityCategory, domain.ActionCreate, res, err)
}

// UpdateCategory godoc
// @ID          updateCategory
// @Summary     Update a category
// @Tags        Categories
// @Accept      json
// @Produce     json
// @Param       id    path  string           true  "Category ID"
// @Param       body  body  domain.Category  true  "Category"
// @Success     200  {object}  domain.Category       "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Router      /categories/{id} [put]
func (h *Handlers) UpdateCategory(c *gin.Context) {
	var cat domain.Category
	if !bindEntity(c, &cat) {
		return
	}
	res, err := h.mut.UpdateCategory(c.Request.Context(), c.Param("id"), cat)
	respondMutation(c, domain.EntityCategory, domain.ActionUpdate, res, err)
}

// DeleteCategory godoc
// @ID          deleteCategory
// @Summary     Delete a category
// @Tags        Categories
// @Produce     json
// @Param       id  path  string  true  "Category ID"
// @Success     200  {object}  domain.EntityRef      "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Router      /categories/{id} [delete]
func (h *Handlers) DeleteCategory(c *gin.Context) {
	res, err := h.mut.DeleteCategory(c.Request.Context(), c.Param("id"))
	respondMutation(c, domain.EntityCategory, domain.ActionDelete, res, err)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the signed-in user's profile
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body  domain.UserProfile  true  "Profile"
// @Success     200  {object}  domain.UserProfile    "Applied"
// @Success     202  {object}  domain.OfflineAction  "Queued"
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /users/me [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var p domain.UserProfile
	if !bindEntity(c, &p) {
		return
	}
	res, err := h.mut.UpdateProfile(c.Request.Context(), p)
	respondMutation(c, domain.EntityUser, domain.ActionUpdate, res, err)
}
