// Package venue is the public venue catalog: the venue list and per-venue events.
package venue

import (
	"context"
	"net/http"

	"github.com/nightpass/nightpass/internal/state"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"go.uber.org/zap"
)

type State struct {
	Venues    []schema.Venue
	Loading   bool
	LastError string
}

type Manager struct {
	api *sdk.Client
	log *zap.Logger

	st   *state.Store[State]
	busy state.Busy
}

func New(api *sdk.Client, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{api: api, log: log.Named("venue"), st: state.New(State{})}
}

func (m *Manager) State() State {
	return m.st.Get()
}

func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.st.Subscribe(fn)
}

// FetchVenues replaces the catalog. A failure keeps the previous list.
func (m *Manager) FetchVenues(ctx context.Context) error {
	m.st.Update(func(s *State) {
		s.Loading = m.busy.Enter()
		s.LastError = ""
	})
	defer m.st.Update(func(s *State) { s.Loading = m.busy.Leave() })

	gen := m.st.Begin()
	resp, err := sdk.Request[schema.VenuesResponse](ctx, m.api, sdk.RouteVenues, http.MethodGet, nil, true)
	if err != nil {
		m.st.Commit(gen, func(s *State) { s.LastError = err.Error() })
		return err
	}
	m.st.Commit(gen, func(s *State) { s.Venues = resp.Venues })
	return nil
}

func (m *Manager) FetchVenue(ctx context.Context, id int64) (schema.Venue, error) {
	resp, err := sdk.Request[schema.VenueResponse](ctx, m.api, sdk.RouteVenue(id), http.MethodGet, nil, true)
	if err != nil {
		return schema.Venue{}, err
	}
	return resp.Venue, nil
}

func (m *Manager) FetchEvents(ctx context.Context, venueID int64) ([]schema.Event, error) {
	resp, err := sdk.Request[schema.EventsResponse](ctx, m.api, sdk.RouteVenueEvents(venueID), http.MethodGet, nil, true)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}
