package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/lead-dispatch/internal/services"
	"github.com/tbourn/lead-dispatch/internal/utils"
)

// CanonicalResponse maps a possibly merged artisan id to its canonical id.
type CanonicalResponse struct {
	ArtisanID   string `json:"artisan_id"   example:"6f0c1d1e-0000-4000-8000-000000000001"`
	CanonicalID string `json:"canonical_id" example:"6f0c1d1e-0000-4000-8000-000000000002"`
}

// MergeRequest is the payload of POST /artisans/{id}/merge.
type MergeRequest struct {
	Into string `json:"into" binding:"required" example:"6f0c1d1e-0000-4000-8000-000000000002"`
}

// CapacityResponse is the ledger usage of the canonical artisan.
type CapacityResponse struct {
	RequestedID string `json:"requested_id"`
	services.Usage
}

// CanonicalArtisan godoc
// @ID          canonicalArtisan
// @Summary     Resolve an artisan id
// @Description Follows merge links to the canonical artisan. Unknown ids resolve to themselves.
// @Tags        Artisans
// @Produce     json
// @Param       id         path   string  true   "Artisan ID"
// @Param       max_depth  query  int     false  "Maximum hops"  minimum(1) default(10)
// @Success     200  {object} handlers.CanonicalResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /artisans/{id}/canonical [get]
func (h *Handlers) CanonicalArtisan(c *gin.Context) {
	id := c.Param("id")
	canonical, err := h.identity.Canonical(c.Request.Context(), id, utils.AtoiDefault(c.Query("max_depth"), 0))
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, CanonicalResponse{ArtisanID: id, CanonicalID: canonical})
}

// MergeArtisan godoc
// @ID          mergeArtisan
// @Summary     Merge an artisan into another
// @Description Records that the path artisan was superseded by the body artisan.
// @Tags        Artisans
// @Accept      json
// @Produce     json
// @Param       id    path  string                 true  "Superseded artisan ID"
// @Param       body  body  handlers.MergeRequest  true  "Surviving artisan"
// @Success     200  {object} handlers.CanonicalResponse
// @Failure     400  {object} handlers.ErrorResponse "Self merge or invalid body"
// @Failure     404  {object} handlers.ErrorResponse "Artisan not found"
// @Failure     409  {object} handlers.ErrorResponse "Already merged or cycle"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /artisans/{id}/merge [post]
func (h *Handlers) MergeArtisan(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Into) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "into is required")
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.identity.Merge(ctx, id, strings.TrimSpace(req.Into)); err != nil {
		serviceFail(c, err)
		return
	}
	canonical, err := h.identity.Canonical(ctx, id, 0)
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, CanonicalResponse{ArtisanID: id, CanonicalID: canonical})
}

// ArtisanCapacity godoc
// @ID          artisanCapacity
// @Summary     Artisan capacity for a month
// @Description Resolves the artisan id, then returns ledger counters and the effective quota.
// @Tags        Artisans
// @Produce     json
// @Param       id     path   string  true   "Artisan ID"
// @Param       month  query  string  false  "Month (YYYY-MM), defaults to the current UTC month"  example(2025-03)
// @Success     200  {object} handlers.CapacityResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid month"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /artisans/{id}/capacity [get]
func (h *Handlers) ArtisanCapacity(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	canonical, err := h.identity.Canonical(ctx, id, 0)
	if err != nil {
		serviceFail(c, err)
		return
	}

	fallback := 0
	cfg, err := h.configs.Active(ctx)
	switch {
	case err == nil:
		fallback = cfg.MonthlyQuotaDefault
	case errors.Is(err, services.ErrConfigNotFound):
	default:
		serviceFail(c, err)
		return
	}

	u, err := h.capacity.Usage(ctx, canonical, utils.MonthOrCurrent(c.Query("month"), h.now()), fallback)
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, CapacityResponse{RequestedID: id, Usage: *u})
}
