package approval_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nightpass/nightpass/internal/devapi/devapitest"
	"github.com/nightpass/nightpass/pkg/approval"
	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phone = "+995555000111"

func signedIn(t *testing.T) (*devapitest.Env, *approval.Manager) {
	t.Helper()
	env := devapitest.Start(t)
	env.SignIn(t, phone)
	return env, approval.New(env.Client, nil)
}

func TestRequestApproval_RefreshesList(t *testing.T) {
	_, m := signedIn(t)

	a, err := m.RequestApproval(context.Background(), 7, nil, schema.ApprovalGlobal)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusPending, a.Status)
	assert.False(t, a.Active)
	assert.Equal(t, int64(7), a.Venue.ID)

	st := m.State()
	require.Len(t, st.Approvals, 1)
	assert.Equal(t, a.ID, st.Approvals[0].ID)
	assert.Empty(t, st.ActiveApprovals)
	assert.False(t, st.Loading)
}

func TestRequestApproval_EventSpecific(t *testing.T) {
	env, m := signedIn(t)
	ctx := context.Background()

	events, err := sdk.Request[schema.EventsResponse](ctx, env.Client, sdk.RouteVenueEvents(7), http.MethodGet, nil, true)
	require.NoError(t, err)
	require.NotEmpty(t, events.Events)
	eventID := events.Events[0].ID

	a, err := m.RequestApproval(ctx, 7, &eventID, schema.ApprovalEventSpecific)
	require.NoError(t, err)
	require.NotNil(t, a.Event)
	assert.Equal(t, eventID, a.Event.ID)

	got, err := m.FetchApproval(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ApprovalEventSpecific, got.ApprovalType)
}

func TestRequestApproval_ServerErrorPropagates(t *testing.T) {
	_, m := signedIn(t)

	_, err := m.RequestApproval(context.Background(), 404, nil, schema.ApprovalGlobal)
	code, ok := sdk.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, m.State().Approvals)
}

func TestActiveApprovalsIsExactSubset(t *testing.T) {
	env, m := signedIn(t)
	ctx := context.Background()

	for _, venueID := range []int64{7, 8, 9} {
		_, err := m.RequestApproval(ctx, venueID, nil, schema.ApprovalGlobal)
		require.NoError(t, err)
	}

	adminClient := env.ClientFor(t, devapitest.AdminPhone)
	approved, err := sdk.Request[schema.AdminApprovalResponse](ctx, adminClient, sdk.RouteAdminApprove(7, 1), http.MethodPost, nil, true)
	require.NoError(t, err)
	require.Equal(t, schema.StatusApproved, approved.Approval.Status)

	require.NoError(t, m.FetchApprovals(ctx))
	st := m.State()
	require.Len(t, st.Approvals, 3)

	var want []int64
	for _, a := range st.Approvals {
		if a.Active {
			want = append(want, a.ID)
		}
	}
	var got []int64
	for _, a := range st.ActiveApprovals {
		assert.True(t, a.Active)
		got = append(got, a.ID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []int64{1}, got)

	data, ok, err := m.GetQRCode(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, data)
}

func TestGetQRCode_RejectedIsAbsent(t *testing.T) {
	env, m := signedIn(t)
	ctx := context.Background()

	a, err := m.RequestApproval(ctx, 7, nil, schema.ApprovalGlobal)
	require.NoError(t, err)

	adminClient := env.ClientFor(t, devapitest.AdminPhone)
	_, err = sdk.Request[schema.AdminApprovalResponse](ctx, adminClient, sdk.RouteAdminReject(7, a.ID), http.MethodPost, nil, true)
	require.NoError(t, err)

	data, ok, err := m.GetQRCode(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, data)
}

func TestFetchApprovals_ErrorKeepsPreviousList(t *testing.T) {
	env, m := signedIn(t)
	ctx := context.Background()

	_, err := m.RequestApproval(ctx, 7, nil, schema.ApprovalGlobal)
	require.NoError(t, err)
	require.Len(t, m.State().Approvals, 1)

	env.Server.Close()
	err = m.FetchApprovals(ctx)
	require.Error(t, err)

	st := m.State()
	assert.Len(t, st.Approvals, 1, "a failed read leaves prior state untouched")
	assert.NotEmpty(t, st.LastError)
	assert.False(t, st.Loading)
}

func TestFetchApprovals_WithoutTokenMakesNoCall(t *testing.T) {
	env := devapitest.Start(t)
	m := approval.New(env.Client, nil)

	err := m.FetchApprovals(context.Background())
	require.ErrorIs(t, err, sdk.ErrUnauthorized)
	_, _, err = m.GetQRCode(context.Background(), 1)
	require.ErrorIs(t, err, sdk.ErrUnauthorized)
	assert.Zero(t, env.Hits())
}

func TestFetchApprovals_StaleResponseIsDiscarded(t *testing.T) {
	var (
		calls    atomic.Int32
		started  = make(chan struct{})
		release  = make(chan struct{})
		slowBody = `{"approvals":[{"id":1,"venue":{"id":7,"name":"KHIDI"},"approval_type":"global","status":"pending","active":false,"qr_used":false,"created_at":"2025-05-01T10:00:00Z"}]}`
		fastBody = `{"approvals":[{"id":2,"venue":{"id":7,"name":"KHIDI"},"approval_type":"global","status":"approved","active":true,"qr_used":false,"created_at":"2025-05-02T10:00:00Z"}]}`
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			close(started)
			<-release
			io.WriteString(w, slowBody)
			return
		}
		io.WriteString(w, fastBody)
	}))
	defer srv.Close()

	creds := keystore.NewMemStore(map[string]string{keystore.KeyAccessToken: "tok"}, nil, nil)
	client, err := sdk.New(sdk.Options{BaseURL: srv.URL}, creds)
	require.NoError(t, err)
	m := approval.New(client, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.FetchApprovals(ctx))
	}()

	<-started
	require.NoError(t, m.FetchApprovals(ctx))
	assert.True(t, m.State().Loading, "the older fetch is still running")

	close(release)
	wg.Wait()

	st := m.State()
	require.Len(t, st.Approvals, 1)
	assert.Equal(t, int64(2), st.Approvals[0].ID, "the older response must not overwrite the newer one")
	assert.Len(t, st.ActiveApprovals, 1)
	assert.False(t, st.Loading)
}
