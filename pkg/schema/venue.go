package schema

// Venue is a nightlife venue as listed in the public catalog.
type Venue struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Description    *string `json:"description,omitempty"`
	Address        *string `json:"address,omitempty"`
	CreatedAt      *Time   `json:"created_at,omitempty"`
	UpdatedAt      *Time   `json:"updated_at,omitempty"`
	UpcomingEvents []Event `json:"upcoming_events,omitempty"`
}

// Event is a dated happening at a venue.
type Event struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Description         *string `json:"description,omitempty"`
	DateTime            Time    `json:"date_time"`
	AllowGlobalApproval bool    `json:"allow_global_approval"`
	Upcoming            *bool   `json:"upcoming,omitempty"`
}

type VenuesResponse struct {
	Venues []Venue `json:"venues"`
}

type VenueResponse struct {
	Venue Venue `json:"venue"`
}

type EventsResponse struct {
	Events []Event `json:"events"`
}
