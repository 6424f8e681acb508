// Package admin is the venue administrator's view: administered venues and the
// approvals submitted for them, with approve and reject decisions.
package admin

import (
	"context"
	"net/http"

	"github.com/nightpass/nightpass/internal/state"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"go.uber.org/zap"
)

type State struct {
	Venues    []schema.AdminVenue
	Approvals []schema.AdminApproval
	Loading   bool
	LastError string
}

type Manager struct {
	api *sdk.Client
	log *zap.Logger

	st   *state.Store[State]
	busy state.Busy

	// venues and approvals are fenced separately so one list never discards the other
	venuesGen    state.Fence
	approvalsGen state.Fence
}

func New(api *sdk.Client, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		api: api,
		log: log.Named("admin"),
		st:  state.New(State{}),
	}
}

func (m *Manager) State() State {
	return m.st.Get()
}

func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.st.Subscribe(fn)
}

// FetchVenues replaces the list of administered venues.
func (m *Manager) FetchVenues(ctx context.Context) error {
	m.enter()
	defer m.leave()

	gen := m.venuesGen.Begin()
	resp, err := sdk.Request[schema.AdminVenuesResponse](ctx, m.api, sdk.RouteAdminVenues, http.MethodGet, nil, true)
	m.commit(&m.venuesGen, gen, err, func(s *State) { s.Venues = resp.Venues })
	return err
}

// FetchVenueDetail returns one venue with fresh stats. The list is not updated.
func (m *Manager) FetchVenueDetail(ctx context.Context, venueID int64) (schema.AdminVenue, error) {
	resp, err := sdk.Request[schema.AdminVenueResponse](ctx, m.api, sdk.RouteAdminVenue(venueID), http.MethodGet, nil, true)
	if err != nil {
		return schema.AdminVenue{}, err
	}
	return resp.Venue, nil
}

// FetchApprovals replaces the approval list with a venue's approvals, or only its
// pending ones.
func (m *Manager) FetchApprovals(ctx context.Context, venueID int64, pendingOnly bool) error {
	m.enter()
	defer m.leave()

	route := sdk.RouteAdminApprovals(venueID)
	if pendingOnly {
		route = sdk.RouteAdminPendingApprovals(venueID)
	}

	gen := m.approvalsGen.Begin()
	resp, err := sdk.Request[schema.AdminApprovalsResponse](ctx, m.api, route, http.MethodGet, nil, true)
	m.commit(&m.approvalsGen, gen, err, func(s *State) { s.Approvals = resp.Approvals })
	return err
}

// FetchApproval loads one approval of a venue.
func (m *Manager) FetchApproval(ctx context.Context, venueID, id int64) (schema.AdminApproval, error) {
	resp, err := sdk.Request[schema.AdminApprovalResponse](ctx, m.api, sdk.RouteAdminApproval(venueID, id), http.MethodGet, nil, true)
	if err != nil {
		return schema.AdminApproval{}, err
	}
	return resp.Approval, nil
}

// ApproveApproval moves a pending approval to approved. The server refuses any
// other starting status and that refusal is returned as an *sdk.HTTPError.
func (m *Manager) ApproveApproval(ctx context.Context, venueID, id int64) (schema.AdminApproval, error) {
	return m.decide(ctx, sdk.RouteAdminApprove(venueID, id), venueID, id)
}

// RejectApproval moves a pending approval to rejected.
func (m *Manager) RejectApproval(ctx context.Context, venueID, id int64) (schema.AdminApproval, error) {
	return m.decide(ctx, sdk.RouteAdminReject(venueID, id), venueID, id)
}

func (m *Manager) decide(ctx context.Context, route sdk.Route, venueID, id int64) (schema.AdminApproval, error) {
	m.enter()
	defer m.leave()

	resp, err := sdk.Request[schema.AdminApprovalResponse](ctx, m.api, route, http.MethodPost, nil, true)
	if err != nil {
		return schema.AdminApproval{}, err
	}
	m.log.Info("approval decided",
		zap.Int64("venue_id", venueID),
		zap.Int64("approval_id", id),
		zap.String("status", string(resp.Approval.Status)),
	)
	return resp.Approval, nil
}

// commit applies a read result if gen is still the latest fetch of its list. The
// fence is checked under the state lock, so a newer result is never overwritten.
func (m *Manager) commit(fence *state.Fence, gen uint64, err error, apply func(*State)) {
	applied := m.st.UpdateIf(func(s *State) bool {
		if !fence.Current(gen) {
			return false
		}
		if err != nil {
			s.LastError = err.Error()
			return true
		}
		apply(s)
		return true
	})
	if !applied {
		m.log.Debug("discarded stale response")
	}
}

func (m *Manager) enter() {
	m.st.Update(func(s *State) {
		s.Loading = m.busy.Enter()
		s.LastError = ""
	})
}

func (m *Manager) leave() {
	m.st.Update(func(s *State) { s.Loading = m.busy.Leave() })
}
