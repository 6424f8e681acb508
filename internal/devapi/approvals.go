package devapi

import (
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightpass/nightpass/pkg/schema"
)

func (h *Handler) ListApprovals(c *gin.Context) {
	c.JSON(http.StatusOK, schema.ApprovalsResponse{Approvals: h.Store.userApprovals(currentUserID(c))})
}

func (h *Handler) CreateApproval(c *gin.Context) {
	var input schema.CreateApprovalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Approval.VenueID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "venue_id is required"})
		return
	}

	a, err := h.Store.createApproval(currentUserID(c), input.Approval)
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Approval requested"
	c.JSON(http.StatusCreated, schema.ApprovalResponse{Approval: a, Message: &msg})
}

func (h *Handler) GetApproval(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := h.Store.userApproval(currentUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.ApprovalResponse{Approval: a})
}

// GetQRCode answers 200 with null fields when the approval has no usable pass.
func (h *Handler) GetQRCode(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	data, usable, err := h.Store.qrCode(currentUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !usable {
		c.JSON(http.StatusOK, gin.H{"qr_code_svg": nil, "qr_code_data": nil})
		return
	}
	svg := qrPlaceholderSVG(data)
	c.JSON(http.StatusOK, schema.QRCodeResponse{QRCodeSVG: &svg, QRCodeData: &data})
}

// qrPlaceholderSVG renders the payload as text; clients draw their own code from
// qr_code_data.
func qrPlaceholderSVG(data string) string {
	return `<svg xmlns="http://www.w3.org/2000/svg" width="240" height="40"><text x="4" y="24" font-size="10">` +
		html.EscapeString(data) + `</text></svg>`
}
