package sdk_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv    *httptest.Server
	calls  atomic.Int32
	tokens *keystore.MemStore
	client *sdk.Client
}

func newFixture(t *testing.T, h http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{tokens: keystore.NewMemStore(nil, nil, nil)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)

	c, err := sdk.New(sdk.Options{BaseURL: f.srv.URL}, f.tokens)
	require.NoError(t, err)
	f.client = c
	return f
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestRequest_AuthenticatedWithoutTokenMakesNoCall(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"approvals":[]}`)
	})

	_, err := sdk.Request[schema.ApprovalsResponse](context.Background(), f.client, sdk.RouteApprovals, http.MethodGet, nil, true)
	require.ErrorIs(t, err, sdk.ErrUnauthorized)

	_, err = f.client.UploadFile(context.Background(), sdk.RouteUploadPhoto, []byte("img"), "photo.jpg", "photo", "image/jpeg")
	require.ErrorIs(t, err, sdk.ErrUnauthorized)

	assert.Equal(t, int32(0), f.calls.Load())
}

func TestRequest_SendsBearerAndDecodes(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/approvals", r.URL.Path)
		assert.Equal(t, "Bearer tok-a", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, 200, `{"approvals":[{"id":1,"venue":{"id":7,"name":"KHIDI"},"approval_type":"global",
			"status":"pending","active":false,"qr_used":false,"created_at":"2025-05-01T10:00:00Z"}]}`)
	})
	f.tokens.Save(keystore.KeyAccessToken, "tok-a")

	resp, err := sdk.Request[schema.ApprovalsResponse](context.Background(), f.client, sdk.RouteApprovals, http.MethodGet, nil, true)
	require.NoError(t, err)
	require.Len(t, resp.Approvals, 1)
	assert.Equal(t, schema.StatusPending, resp.Approvals[0].Status)
	assert.Equal(t, 2025, resp.Approvals[0].CreatedAt.Year())
}

func TestRequest_SnakeCaseBodyAndNoAuthHeader(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"approval":{"venue_id":7,"approval_type":"global"}}`, string(raw))
		writeJSON(w, 200, `{"message":"ok"}`)
	})
	// an unauthenticated call ignores any stored token
	f.tokens.Save(keystore.KeyAccessToken, "tok-a")

	body := schema.CreateApprovalRequest{Approval: schema.ApprovalRequest{VenueID: 7, ApprovalType: schema.ApprovalGlobal}}
	msg, err := sdk.Request[schema.MessageResponse](context.Background(), f.client, sdk.RouteApprovals, http.MethodPost, body, false)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Message)
}

func TestRequest_StatusClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		unauth  bool
	}{
		{name: "401 with message", status: 401, body: `{"error":"expired"}`, unauth: true},
		{name: "401 empty", status: 401, body: ``, unauth: true},
		{name: "422 structured", status: 422, body: `{"error":"Approval is not pending"}`, wantMsg: "Approval is not pending"},
		{name: "404 unstructured", status: 404, body: `<html>nope</html>`, wantMsg: "Request failed"},
		{name: "500 wrong shape", status: 500, body: `{"message":"boom"}`, wantMsg: "Request failed"},
		// a >=400 response never yields a value, even if the body decodes as T
		{name: "400 decodable body", status: 400, body: `{"user":{"id":1}}`, wantMsg: "Request failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			f.tokens.Save(keystore.KeyAccessToken, "tok")

			resp, err := sdk.Request[schema.UserResponse](context.Background(), f.client, sdk.RouteProfile, http.MethodGet, nil, true)
			require.Error(t, err)
			assert.Zero(t, resp)

			if tc.unauth {
				assert.ErrorIs(t, err, sdk.ErrUnauthorized)
				return
			}
			var httpErr *sdk.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.status, httpErr.StatusCode)
			assert.Equal(t, tc.wantMsg, httpErr.Message)

			code, ok := sdk.StatusCode(err)
			assert.True(t, ok)
			assert.Equal(t, tc.status, code)
		})
	}
}

func TestRequest_DecodingError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"venues":[{"id":"seven"}]}`)
	})

	_, err := sdk.Request[schema.VenuesResponse](context.Background(), f.client, sdk.RouteVenues, http.MethodGet, nil, false)
	var decErr *sdk.DecodingError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestRequest_BadDateIsDecodingError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"events":[{"id":1,"name":"x","date_time":"next friday","allow_global_approval":true}]}`)
	})

	_, err := sdk.Request[schema.EventsResponse](context.Background(), f.client, sdk.RouteVenueEvents(1), http.MethodGet, nil, false)
	var decErr *sdk.DecodingError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, err.Error(), "next friday")
}

func TestRequest_NetworkError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	f.srv.Close()

	_, err := sdk.Request[schema.VenuesResponse](context.Background(), f.client, sdk.RouteVenues, http.MethodGet, nil, false)
	var netErr *sdk.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestRequest_CanceledContextIsNetworkError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"venues":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sdk.Request[schema.VenuesResponse](ctx, f.client, sdk.RouteVenues, http.MethodGet, nil, false)
	var netErr *sdk.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRequest_InvalidRoute(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {})

	err := f.client.Do(context.Background(), sdk.Route{}, http.MethodGet, nil, false, nil)
	require.ErrorIs(t, err, sdk.ErrInvalidURL)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestRequest_UnexpectedStatusIsInvalidResponse(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})

	err := f.client.Do(context.Background(), sdk.RouteVenues, http.MethodGet, nil, false, nil)
	require.ErrorIs(t, err, sdk.ErrInvalidResponse)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"localhost:3000", "ftp://example.com", "http://", "::bad"} {
		_, err := sdk.New(sdk.Options{BaseURL: base}, nil)
		assert.ErrorIs(t, err, sdk.ErrInvalidURL, base)
	}

	c, err := sdk.New(sdk.Options{BaseURL: "https://api.example.com/", APIPrefix: "v2/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v2", c.BaseURL())
}

func TestUploadFile(t *testing.T) {
	var boundaries []string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/profile/upload_id_card", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		mr, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			return
		}
		_, params, _ := strings.Cut(r.Header.Get("Content-Type"), "boundary=")
		boundaries = append(boundaries, params)

		part, err := mr.NextPart()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "id_card", part.FormName())
		assert.Equal(t, "id_card.jpg", part.FileName())
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))
		data, _ := io.ReadAll(part)
		assert.Equal(t, "jpeg-bytes", string(data))

		_, err = mr.NextPart()
		assert.ErrorIs(t, err, io.EOF, "exactly one part expected")

		writeJSON(w, 200, `{"message":"ID card uploaded"}`)
	})
	f.tokens.Save(keystore.KeyAccessToken, "tok")

	for i := 0; i < 2; i++ {
		msg, err := f.client.UploadFile(context.Background(), sdk.RouteUploadIDCard, []byte("jpeg-bytes"), "id_card.jpg", "id_card", "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "ID card uploaded", msg.Message)
	}
	require.Len(t, boundaries, 2)
	assert.NotEqual(t, boundaries[0], boundaries[1], "boundary must be random per request")
}

func TestUploadFile_ErrorFallback(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})
	f.tokens.Save(keystore.KeyAccessToken, "tok")

	_, err := f.client.UploadFile(context.Background(), sdk.RouteUploadPhoto, []byte("x"), "photo.jpg", "photo", "image/jpeg")
	var httpErr *sdk.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Upload failed", httpErr.Message)
}

func TestRoutes(t *testing.T) {
	cases := map[string]sdk.Route{
		"/auth/register":                          sdk.RouteRegister,
		"/auth/confirm_registration":              sdk.RouteConfirmRegistration,
		"/auth/login":                             sdk.RouteLogin,
		"/auth/confirm_login":                     sdk.RouteConfirmLogin,
		"/auth/logout":                            sdk.RouteLogout,
		"/profile":                                sdk.RouteProfile,
		"/profile/upload_photo":                   sdk.RouteUploadPhoto,
		"/profile/upload_id_card":                 sdk.RouteUploadIDCard,
		"/venues":                                 sdk.RouteVenues,
		"/venues/3":                               sdk.RouteVenue(3),
		"/venues/3/events":                        sdk.RouteVenueEvents(3),
		"/approvals":                              sdk.RouteApprovals,
		"/approvals/9":                            sdk.RouteApproval(9),
		"/approvals/9/qr_code":                    sdk.RouteApprovalQRCode(9),
		"/admin/venues":                           sdk.RouteAdminVenues,
		"/admin/venues/7":                         sdk.RouteAdminVenue(7),
		"/admin/venues/7/approvals":               sdk.RouteAdminApprovals(7),
		"/admin/venues/7/approvals/pending":       sdk.RouteAdminPendingApprovals(7),
		"/admin/venues/7/approvals/42":            sdk.RouteAdminApproval(7, 42),
		"/admin/venues/7/approvals/42/approve":    sdk.RouteAdminApprove(7, 42),
		"/admin/venues/7/approvals/42/reject":     sdk.RouteAdminReject(7, 42),
	}
	for want, r := range cases {
		got, ok := r.Path()
		assert.True(t, ok, want)
		assert.Equal(t, want, got)
	}

	_, ok := sdk.Route{}.Path()
	assert.False(t, ok)
}

func TestErrorMessages(t *testing.T) {
	err := &sdk.DecodingError{Err: errors.New("bad field")}
	assert.Equal(t, "failed to decode response: bad field", err.Error())

	assert.True(t, sdk.IsUnauthorized(errors.Join(errors.New("ctx"), sdk.ErrUnauthorized)))
}
