package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ReleaseRequest is the payload of POST /assignments/{id}/release.
type ReleaseRequest struct {
	Reason string `json:"reason" binding:"required" example:"declined" enums:"declined,expired"`
}

// ExpireResponse reports how many assignments an expiry sweep released.
type ExpireResponse struct {
	Expired int `json:"expired" example:"3"`
}

// ViewAssignment godoc
// @ID          viewAssignment
// @Summary     Mark an assignment viewed
// @Description Moves a pending assignment to viewed. Other states are returned unchanged.
// @Tags        Assignments
// @Produce     json
// @Param       id   path     string  true  "Assignment ID"
// @Success     200  {object} domain.LeadAssignment
// @Failure     404  {object} handlers.ErrorResponse "Assignment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /assignments/{id}/view [post]
func (h *Handlers) ViewAssignment(c *gin.Context) {
	a, err := h.asg.MarkViewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, a)
}

// ConsumeAssignment godoc
// @ID          consumeAssignment
// @Summary     Consume an assignment
// @Description Marks the reserved capacity as used. Repeating the call is a no-op.
// @Tags        Assignments
// @Produce     json
// @Param       id   path     string  true  "Assignment ID"
// @Success     200  {object} domain.LeadAssignment
// @Failure     404  {object} handlers.ErrorResponse "Assignment not found"
// @Failure     409  {object} handlers.ErrorResponse "Assignment already released"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /assignments/{id}/consume [post]
func (h *Handlers) ConsumeAssignment(c *gin.Context) {
	a, err := h.asg.Consume(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, a)
}

// ReleaseAssignment godoc
// @ID          releaseAssignment
// @Summary     Release an assignment
// @Description Returns the reserved capacity to the artisan's monthly quota.
// @Tags        Assignments
// @Accept      json
// @Produce     json
// @Param       id    path     string                   true  "Assignment ID"
// @Param       body  body     handlers.ReleaseRequest  true  "Release reason"
// @Success     200   {object} domain.LeadAssignment
// @Failure     400   {object} handlers.ErrorResponse "Invalid reason"
// @Failure     404   {object} handlers.ErrorResponse "Assignment not found"
// @Failure     409   {object} handlers.ErrorResponse "Assignment already consumed"
// @Failure     500   {object} handlers.ErrorResponse "Internal error"
// @Router      /assignments/{id}/release [post]
func (h *Handlers) ReleaseAssignment(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reason is required")
		return
	}
	reason := strings.ToLower(strings.TrimSpace(req.Reason))
	a, err := h.asg.Release(c.Request.Context(), c.Param("id"), reason)
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, a)
}

// ExpireAssignments godoc
// @ID          expireAssignments
// @Summary     Expire stale assignments
// @Description Releases every pending or viewed assignment reserved more than expiry_hours ago.
// @Tags        Admin
// @Produce     json
// @Success     200  {object} handlers.ExpireResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/expire [post]
func (h *Handlers) ExpireAssignments(c *gin.Context) {
	n, err := h.asg.ExpireStale(c.Request.Context(), h.now().UTC())
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, ExpireResponse{Expired: n})
}
