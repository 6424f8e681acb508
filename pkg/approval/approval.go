// Package approval manages the signed-in user's venue approvals and their QR passes.
package approval

import (
	"context"
	"net/http"

	"github.com/nightpass/nightpass/internal/state"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"go.uber.org/zap"
)

// State is the published snapshot of a Manager. ActiveApprovals is always the subset
// of Approvals whose Active flag is set, in the same order.
type State struct {
	Approvals       []schema.Approval
	ActiveApprovals []schema.Approval
	Loading         bool
	LastError       string
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
	return &Manager{
		api: api,
		log: log.Named("approval"),
		st:  state.New(State{}),
	}
}

func (m *Manager) State() State {
	return m.st.Get()
}

func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.st.Subscribe(fn)
}

// FetchApprovals replaces the approval list. On failure the previous list is kept
// and the error is recorded in LastError as well as returned. When fetches overlap,
// only the most recently started one is applied.
func (m *Manager) FetchApprovals(ctx context.Context) error {
	m.enter()
	defer m.leave()

	gen := m.st.Begin()
	resp, err := sdk.Request[schema.ApprovalsResponse](ctx, m.api, sdk.RouteApprovals, http.MethodGet, nil, true)
	if err != nil {
		m.st.Commit(gen, func(s *State) { s.LastError = err.Error() })
		return err
	}

	applied := m.st.Commit(gen, func(s *State) {
		s.Approvals = resp.Approvals
		s.ActiveApprovals = activeOnly(resp.Approvals)
	})
	if !applied {
		m.log.Debug("discarded stale approvals response")
	}
	return nil
}

func activeOnly(all []schema.Approval) []schema.Approval {
	out := make([]schema.Approval, 0, len(all))
	for _, a := range all {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// FetchApproval loads one approval without touching the list.
func (m *Manager) FetchApproval(ctx context.Context, id int64) (schema.Approval, error) {
	resp, err := sdk.Request[schema.ApprovalResponse](ctx, m.api, sdk.RouteApproval(id), http.MethodGet, nil, true)
	if err != nil {
		return schema.Approval{}, err
	}
	return resp.Approval, nil
}

// RequestApproval asks for entry to a venue, or to one of its events when eventID is
// set, then refreshes the list. It returns the created approval; a failed refresh is
// only recorded in LastError.
func (m *Manager) RequestApproval(ctx context.Context, venueID int64, eventID *int64, typ schema.ApprovalType) (schema.Approval, error) {
	body := schema.CreateApprovalRequest{Approval: schema.ApprovalRequest{
		VenueID:      venueID,
		EventID:      eventID,
		ApprovalType: typ,
	}}
	resp, err := sdk.Request[schema.ApprovalResponse](ctx, m.api, sdk.RouteApprovals, http.MethodPost, body, true)
	if err != nil {
		return schema.Approval{}, err
	}
	m.log.Info("approval requested",
		zap.Int64("approval_id", resp.Approval.ID),
		zap.Int64("venue_id", venueID),
		zap.String("type", string(typ)),
	)

	_ = m.FetchApprovals(ctx)
	return resp.Approval, nil
}

// GetQRCode returns the pass payload of an approval. ok is false when the server
// has no pass for it, which is the normal answer for pending, rejected, used or
// expired approvals. Nothing is cached.
func (m *Manager) GetQRCode(ctx context.Context, id int64) (data string, ok bool, err error) {
	resp, err := sdk.Request[schema.QRCodeResponse](ctx, m.api, sdk.RouteApprovalQRCode(id), http.MethodGet, nil, true)
	if err != nil {
		return "", false, err
	}
	if resp.QRCodeData == nil {
		return "", false, nil
	}
	return *resp.QRCodeData, true, nil
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
