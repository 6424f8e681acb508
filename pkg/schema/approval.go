package schema

// ApprovalType says whether an approval covers the whole venue or one event.
type ApprovalType string

const (
	ApprovalGlobal        ApprovalType = "global"
	ApprovalEventSpecific ApprovalType = "event_specific"
)

// Label is the human-readable name of the approval type.
func (t ApprovalType) Label() string {
	if t == ApprovalEventSpecific {
		return "Event Access"
	}
	return "Global Access"
}

// ApprovalStatus is the position of an approval in its lifecycle.
// pending moves to approved or rejected exactly once, on the server.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Label is the capitalized status name.
func (s ApprovalStatus) Label() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

// Approval is a user's request for entry to a venue.
//
// Active is supplied by the server and is independent of Status; it must not be
// recomputed on the client. QRUsed flips at most once, when the pass is scanned.
type Approval struct {
	ID           int64          `json:"id"`
	Venue        ApprovalVenue  `json:"venue"`
	Event        *ApprovalEvent `json:"event,omitempty"`
	ApprovalType ApprovalType   `json:"approval_type"`
	Status       ApprovalStatus `json:"status"`
	Active       bool           `json:"active"`
	QRUsed       bool           `json:"qr_used"`
	QRCodeData   *string        `json:"qr_code_data,omitempty"`
	ExpiresAt    *Time          `json:"expires_at,omitempty"`
	CreatedAt    Time           `json:"created_at"`
}

// HasUsablePass reports whether a QR pass can still be shown for this approval.
func (a Approval) HasUsablePass() bool {
	return a.Status == StatusApproved && !a.QRUsed
}

type ApprovalVenue struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ApprovalEvent struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	DateTime Time   `json:"date_time"`
}

type ApprovalsResponse struct {
	Approvals []Approval `json:"approvals"`
}

type ApprovalResponse struct {
	Approval Approval `json:"approval"`
	Message  *string  `json:"message,omitempty"`
}

// CreateApprovalRequest is the body of POST /approvals.
type CreateApprovalRequest struct {
	Approval ApprovalRequest `json:"approval"`
}

// ApprovalRequest carries EventID only for event_specific requests.
type ApprovalRequest struct {
	VenueID      int64        `json:"venue_id"`
	EventID      *int64       `json:"event_id,omitempty"`
	ApprovalType ApprovalType `json:"approval_type"`
}

// QRCodeResponse holds the one-time entry payload; both fields are null unless the
// approval is approved.
type QRCodeResponse struct {
	QRCodeSVG  *string `json:"qr_code_svg,omitempty"`
	QRCodeData *string `json:"qr_code_data,omitempty"`
}
