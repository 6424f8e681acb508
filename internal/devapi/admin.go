package devapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightpass/nightpass/pkg/schema"
)

func (h *Handler) AdminListVenues(c *gin.Context) {
	c.JSON(http.StatusOK, schema.AdminVenuesResponse{Venues: h.Store.adminVenues(currentUserID(c))})
}

func (h *Handler) AdminGetVenue(c *gin.Context) {
	venueID, ok := paramID(c, "venue_id")
	if !ok {
		return
	}
	v, err := h.Store.adminVenue(currentUserID(c), venueID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.AdminVenueResponse{Venue: v})
}

func (h *Handler) AdminListApprovals(c *gin.Context) {
	h.listVenueApprovals(c, false)
}

func (h *Handler) AdminListPendingApprovals(c *gin.Context) {
	h.listVenueApprovals(c, true)
}

func (h *Handler) listVenueApprovals(c *gin.Context, pendingOnly bool) {
	venueID, ok := paramID(c, "venue_id")
	if !ok {
		return
	}
	list, err := h.Store.venueApprovals(currentUserID(c), venueID, pendingOnly)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.AdminApprovalsResponse{Approvals: list})
}

func (h *Handler) AdminGetApproval(c *gin.Context) {
	venueID, ok := paramID(c, "venue_id")
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := h.Store.venueApproval(currentUserID(c), venueID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.AdminApprovalResponse{Approval: a})
}

func (h *Handler) AdminApprove(c *gin.Context) {
	h.decide(c, schema.StatusApproved, "Approval approved")
}

func (h *Handler) AdminReject(c *gin.Context) {
	h.decide(c, schema.StatusRejected, "Approval rejected")
}

func (h *Handler) decide(c *gin.Context, to schema.ApprovalStatus, message string) {
	venueID, ok := paramID(c, "venue_id")
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := h.Store.decide(currentUserID(c), venueID, id, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.AdminApprovalResponse{Message: &message, Approval: a})
}
