package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseTime_AcceptedLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-01T22:30:15.250+0400": time.Date(2025, 3, 1, 18, 30, 15, 250_000_000, time.UTC),
		"2025-03-01T22:30:15.250Z":     time.Date(2025, 3, 1, 22, 30, 15, 250_000_000, time.UTC),
		"2025-03-01T22:30:15Z":         time.Date(2025, 3, 1, 22, 30, 15, 0, time.UTC),
		"2025-03-01T22:30:15+04:00":    time.Date(2025, 3, 1, 18, 30, 15, 0, time.UTC),
		"2025-03-01T22:30:15.5-02:00":  time.Date(2025, 3, 2, 0, 30, 15, 500_000_000, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %v, got %v", in, want, got)
	}
}

func TestParseTime_Rejects(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025-03-01", "01/03/2025 22:30"} {
		_, err := ParseTime(in)
		assert.Error(t, err, in)
	}

	var ts Time
	err := json.Unmarshal([]byte(`"not a date"`), &ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a date")

	err = json.Unmarshal([]byte(`1700000000`), &ts)
	assert.Error(t, err)
}

func TestApproval_RoundTrip(t *testing.T) {
	created := NewTime(time.Date(2025, 6, 1, 20, 0, 0, 123_000_000, time.UTC))
	expires := NewTime(time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC))
	in := Approval{
		ID:           42,
		Venue:        ApprovalVenue{ID: 7, Name: "Bassiani"},
		Event:        &ApprovalEvent{ID: 3, Name: "Opening", DateTime: created},
		ApprovalType: ApprovalEventSpecific,
		Status:       StatusApproved,
		Active:       true,
		QRCodeData:   ptr("payload-1"),
		ExpiresAt:    &expires,
		CreatedAt:    created,
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"approval_type":"event_specific"`)
	assert.Contains(t, string(raw), `"qr_code_data":"payload-1"`)

	var out Approval
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestTime_RoundTripKeepsPrecision(t *testing.T) {
	for _, in := range []string{
		"2025-03-01T22:30:15.123456Z",
		"2025-03-01T22:30:15.123456789+04:00",
		"2025-03-01T22:30:15.250+0400",
		"2025-03-01T22:30:15Z",
	} {
		var first Time
		require.NoError(t, json.Unmarshal([]byte(`"`+in+`"`), &first), in)

		raw, err := json.Marshal(first)
		require.NoError(t, err, in)

		var second Time
		require.NoError(t, json.Unmarshal(raw, &second), in)
		assert.True(t, first.Equal(second.Time), "%s: encoded as %s", in, raw)
		_, firstOffset := first.Zone()
		_, secondOffset := second.Zone()
		assert.Equal(t, firstOffset, secondOffset, in)
	}

	var a Approval
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"venue":{"id":7,"name":"KHIDI"},"approval_type":"global","status":"pending","active":false,"qr_used":false,"created_at":"2025-03-01T22:30:15.123456Z"}`), &a))
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"created_at":"2025-03-01T22:30:15.123456Z"`)
}

func TestUser_RoundTrip(t *testing.T) {
	in := User{
		ID:              1,
		FirstName:       "Nino",
		LastName:        "K",
		PhoneNumber:     "+995555000111",
		PhoneVerified:   true,
		Role:            RoleVenueAdmin,
		ProfileComplete: ptr(false),
		SocialLinks:     &SocialLinks{Instagram: ptr("https://instagram.com/nino")},
		ProfilePhotoURL: ptr("/uploads/photo.jpg"),
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out User
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, "Nino K", out.FullName())
	assert.True(t, out.IsVenueAdmin())
}

func TestVenueAndEvent_RoundTrip(t *testing.T) {
	in := Venue{
		ID:          7,
		Name:        "KHIDI",
		Address:     ptr("Vakhushti Bagrationi bridge"),
		Description: ptr("techno"),
		UpcomingEvents: []Event{{
			ID:                  9,
			Name:                "Friday",
			DateTime:            NewTime(time.Date(2025, 6, 6, 23, 0, 0, 0, time.UTC)),
			AllowGlobalApproval: true,
			Upcoming:            ptr(true),
		}},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Venue
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestAuthResponse_Partial(t *testing.T) {
	var resp AuthResponse
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"tok-a"}`), &resp))
	require.NotNil(t, resp.AccessToken)
	assert.Equal(t, "tok-a", *resp.AccessToken)
	assert.Nil(t, resp.RefreshToken)
	assert.Nil(t, resp.User)
}

func TestApprovalRequest_OmitsEventForGlobal(t *testing.T) {
	raw, err := json.Marshal(CreateApprovalRequest{Approval: ApprovalRequest{VenueID: 7, ApprovalType: ApprovalGlobal}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"approval":{"venue_id":7,"approval_type":"global"}}`, string(raw))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Event Access", ApprovalEventSpecific.Label())
	assert.Equal(t, "Global Access", ApprovalGlobal.Label())
	assert.Equal(t, "Rejected", StatusRejected.Label())
	assert.Equal(t, "Pending", ApprovalStatus("").Label())

	a := AdminApproval{Status: StatusPending}
	assert.True(t, a.IsPending())
	assert.False(t, a.IsApproved())
	assert.True(t, Approval{Status: StatusApproved}.HasUsablePass())
	assert.False(t, Approval{Status: StatusApproved, QRUsed: true}.HasUsablePass())
}
