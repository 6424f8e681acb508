package devapi

import (
	"time"

	"github.com/nightpass/nightpass/pkg/schema"
)

// AddUser creates a verified account directly, skipping the OTP flow.
func (s *Store) AddUser(phone, firstName, lastName string) (schema.User, error) {
	if err := s.beginRegistration(phone, firstName, lastName); err != nil {
		return schema.User{}, err
	}
	return s.completeRegistration(phone)
}

// Seed loads a small demo catalog: three venues with upcoming events, and a venue
// admin for the first two venues reachable with adminPhone.
func (s *Store) Seed(adminPhone string) error {
	now := s.now()
	str := func(v string) *string { return &v }
	at := func(d time.Duration) schema.Time { return schema.NewTime(now.Add(d).Truncate(time.Hour)) }

	khidi := s.AddVenue(schema.Venue{
		ID:          7,
		Name:        "KHIDI",
		Description: str("Techno club in a former industrial building by the river."),
		Address:     str("Nikoloz Baratashvili Bridge, Tbilisi"),
	})
	bassiani := s.AddVenue(schema.Venue{
		Name:        "Bassiani",
		Description: str("Club beneath the Dinamo Arena."),
		Address:     str("2 Akaki Tsereteli Ave, Tbilisi"),
	})
	mtkvarze := s.AddVenue(schema.Venue{
		Name:    "Mtkvarze",
		Address: str("Aghmashenebeli Ave, Tbilisi"),
	})

	events := []struct {
		venue int64
		event schema.Event
	}{
		{khidi, schema.Event{Name: "Friday Residents", DateTime: at(3 * 24 * time.Hour), AllowGlobalApproval: true}},
		{khidi, schema.Event{Name: "Anniversary", Description: str("Fourteen hours, two rooms."), DateTime: at(10 * 24 * time.Hour)}},
		{bassiani, schema.Event{Name: "Horoom Night", DateTime: at(5 * 24 * time.Hour), AllowGlobalApproval: true}},
		{mtkvarze, schema.Event{Name: "Open Air", DateTime: at(8 * 24 * time.Hour), AllowGlobalApproval: true}},
	}
	for _, e := range events {
		if _, err := s.AddEvent(e.venue, e.event); err != nil {
			return err
		}
	}

	if adminPhone == "" {
		return nil
	}
	if _, err := s.AddUser(adminPhone, "Venue", "Admin"); err != nil {
		return err
	}
	return s.PromoteVenueAdmin(adminPhone, khidi, bassiani)
}
