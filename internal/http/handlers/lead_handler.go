package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/services"
)

// PreviewResponse lists the ranked candidates for a lead, best first.
type PreviewResponse struct {
	LeadID     string               `json:"lead_id"`
	Strategy   domain.Strategy      `json:"strategy"`
	Candidates []services.Candidate `json:"candidates"`
}

// LeadAssignmentsResponse lists the assignments of a lead ordered by rank.
type LeadAssignmentsResponse struct {
	LeadID      string                  `json:"lead_id"`
	Assignments []domain.LeadAssignment `json:"assignments"`
}

// AllocateLead godoc
// @ID          allocateLead
// @Summary     Allocate a lead
// @Description Distributes a new lead to up to max_artisans_per_lead eligible artisans. Repeated calls are no-ops.
// @Tags        Leads
// @Produce     json
// @Param       id   path     string  true  "Lead ID"
// @Success     200  {object} services.AllocationResult
// @Failure     404  {object} handlers.ErrorResponse "Lead or active configuration not found"
// @Failure     409  {object} handlers.ErrorResponse "Active configuration is invalid"
// @Failure     503  {object} handlers.ErrorResponse "Lead lock not acquired"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/{id}/allocate [post]
func (h *Handlers) AllocateLead(c *gin.Context) {
	res, err := h.alloc.Allocate(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, res)
}

// PreviewLead godoc
// @ID          previewLead
// @Summary     Preview allocation
// @Description Runs filtering and ranking for a lead without reserving capacity or writing assignments.
// @Tags        Leads
// @Produce     json
// @Param       id   path     string  true  "Lead ID"
// @Success     200  {object} handlers.PreviewResponse
// @Failure     404  {object} handlers.ErrorResponse "Lead or active configuration not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/{id}/preview [get]
func (h *Handlers) PreviewLead(c *gin.Context) {
	leadID := c.Param("id")
	cands, strategy, err := h.alloc.Preview(c.Request.Context(), leadID)
	if err != nil {
		serviceFail(c, err)
		return
	}
	if cands == nil {
		cands = []services.Candidate{}
	}
	ok(c, PreviewResponse{LeadID: leadID, Strategy: strategy, Candidates: cands})
}

// ListLeadAssignments godoc
// @ID          listLeadAssignments
// @Summary     List lead assignments
// @Tags        Leads
// @Produce     json
// @Param       id   path     string  true  "Lead ID"
// @Success     200  {object} handlers.LeadAssignmentsResponse
// @Failure     404  {object} handlers.ErrorResponse "Lead not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/{id}/assignments [get]
func (h *Handlers) ListLeadAssignments(c *gin.Context) {
	leadID := c.Param("id")
	as, err := h.asg.ListForLead(c.Request.Context(), leadID)
	if err != nil {
		serviceFail(c, err)
		return
	}
	if as == nil {
		as = []domain.LeadAssignment{}
	}
	ok(c, LeadAssignmentsResponse{LeadID: leadID, Assignments: as})
}
