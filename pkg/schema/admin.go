package schema

// AdminVenue is a venue seen by one of its administrators, with aggregate stats.
type AdminVenue struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Address     *string     `json:"address,omitempty"`
	Stats       *VenueStats `json:"stats,omitempty"`
	CreatedAt   *Time       `json:"created_at,omitempty"`
	UpdatedAt   *Time       `json:"updated_at,omitempty"`
}

// VenueStats is a read-only snapshot computed by the server.
type VenueStats struct {
	TotalEvents      int `json:"total_events"`
	UpcomingEvents   int `json:"upcoming_events"`
	PendingApprovals int `json:"pending_approvals"`
	ApprovedUsers    int `json:"approved_users"`
}

type AdminApprovalUser struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

// AdminApproval is an approval as reviewed by a venue administrator.
type AdminApproval struct {
	ID           int64             `json:"id"`
	User         AdminApprovalUser `json:"user"`
	Event        *ApprovalEvent    `json:"event,omitempty"`
	ApprovalType ApprovalType      `json:"approval_type"`
	Status       ApprovalStatus    `json:"status"`
	Active       bool              `json:"active"`
	QRUsed       bool              `json:"qr_used"`
	ExpiresAt    *Time             `json:"expires_at,omitempty"`
	CreatedAt    Time              `json:"created_at"`
}

func (a AdminApproval) IsPending() bool  { return a.Status == StatusPending }
func (a AdminApproval) IsApproved() bool { return a.Status == StatusApproved }
func (a AdminApproval) IsRejected() bool { return a.Status == StatusRejected }

type AdminVenuesResponse struct {
	Venues []AdminVenue `json:"venues"`
}

type AdminVenueResponse struct {
	Venue AdminVenue `json:"venue"`
}

type AdminApprovalsResponse struct {
	Approvals []AdminApproval `json:"approvals"`
}

type AdminApprovalResponse struct {
	Message  *string       `json:"message,omitempty"`
	Approval AdminApproval `json:"approval"`
}
