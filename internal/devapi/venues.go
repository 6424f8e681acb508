package devapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightpass/nightpass/pkg/schema"
)

func (h *Handler) ListVenues(c *gin.Context) {
	c.JSON(http.StatusOK, schema.VenuesResponse{Venues: h.Store.listVenues()})
}

func (h *Handler) GetVenue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, found := h.Store.venue(id)
	if !found {
		fail(c, errNotFound)
		return
	}
	c.JSON(http.StatusOK, schema.VenueResponse{Venue: v})
}

func (h *Handler) ListEvents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	events, found := h.Store.events(id)
	if !found {
		fail(c, errNotFound)
		return
	}
	c.JSON(http.StatusOK, schema.EventsResponse{Events: events})
}
