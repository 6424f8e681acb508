// Package session owns the signed-in state of the client: the OTP registration and
// login flows, the stored bearer tokens, and the current user's profile.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nightpass/nightpass/internal/state"
	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"go.uber.org/zap"
)

// State is the published snapshot of a Manager.
type State struct {
	Authenticated bool
	CurrentUser   *schema.User
	Loading       bool
	// LastError is the message of the last failed read, or empty.
	LastError string
}

// ProfileUpdate is a partial profile change. Nil fields are left untouched.
// SocialLinks keys are "facebook", "instagram" and "linkedin".
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	SocialLinks map[string]string
}

type Manager struct {
	api   *sdk.Client
	creds keystore.Store
	log   *zap.Logger

	st   *state.Store[State]
	busy state.Busy
}

// New builds a Manager. A stored access token marks the session authenticated right
// away without any network call; call Resume to refresh the profile.
func New(api *sdk.Client, creds keystore.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	_, hasToken := creds.Get(keystore.KeyAccessToken)
	return &Manager{
		api:   api,
		creds: creds,
		log:   log.Named("session"),
		st:    state.New(State{Authenticated: hasToken}),
	}
}

func (m *Manager) State() State {
	return m.st.Get()
}

func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.st.Subscribe(fn)
}

// Resume refreshes the profile of a session restored from stored credentials.
// It does nothing when no session was restored.
func (m *Manager) Resume(ctx context.Context) error {
	if !m.st.Get().Authenticated {
		return nil
	}
	return m.FetchProfile(ctx)
}

type registerRequest struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

type confirmRequest struct {
	PhoneNumber string  `json:"phone_number"`
	SMSCode     string  `json:"sms_code"`
	DeviceInfo  *string `json:"device_info,omitempty"`
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type profileRequest struct {
	Profile profileData `json:"profile"`
}

type profileData struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	FacebookURL  *string `json:"facebook_url,omitempty"`
	InstagramURL *string `json:"instagram_url,omitempty"`
	LinkedinURL  *string `json:"linkedin_url,omitempty"`
}

// Register starts a registration; the server sends a verification code by SMS.
func (m *Manager) Register(ctx context.Context, phone, firstName, lastName string) error {
	m.enter(true)
	defer m.leave()

	_, err := sdk.Request[schema.MessageResponse](ctx, m.api, sdk.RouteRegister, http.MethodPost,
		registerRequest{PhoneNumber: phone, FirstName: firstName, LastName: lastName}, false)
	return err
}

// ConfirmRegistration submits the verification code and signs the new account in.
func (m *Manager) ConfirmRegistration(ctx context.Context, phone, code string) error {
	m.enter(true)
	defer m.leave()

	resp, err := sdk.Request[schema.AuthResponse](ctx, m.api, sdk.RouteConfirmRegistration, http.MethodPost,
		confirmRequest{PhoneNumber: phone, SMSCode: code}, false)
	if err != nil {
		return err
	}
	m.HandleAuthResponse(resp)
	return nil
}

// Login asks the server to send a verification code to an existing account.
func (m *Manager) Login(ctx context.Context, phone string) error {
	m.enter(true)
	defer m.leave()

	_, err := sdk.Request[schema.MessageResponse](ctx, m.api, sdk.RouteLogin, http.MethodPost,
		loginRequest{PhoneNumber: phone}, false)
	return err
}

// ConfirmLogin submits the verification code. deviceInfo is optional.
func (m *Manager) ConfirmLogin(ctx context.Context, phone, code string, deviceInfo *string) error {
	m.enter(true)
	defer m.leave()

	resp, err := sdk.Request[schema.AuthResponse](ctx, m.api, sdk.RouteConfirmLogin, http.MethodPost,
		confirmRequest{PhoneNumber: phone, SMSCode: code, DeviceInfo: deviceInfo}, false)
	if err != nil {
		return err
	}
	m.HandleAuthResponse(resp)
	return nil
}

// HandleAuthResponse stores whichever tokens the response carries, replaces the
// user if one is present, and marks the session authenticated.
func (m *Manager) HandleAuthResponse(resp schema.AuthResponse) {
	// results of profile fetches started before sign-in are stale from here on,
	// including an unauthorized answer for the previous token
	m.st.Begin()

	if resp.AccessToken != nil {
		m.creds.Save(keystore.KeyAccessToken, *resp.AccessToken)
	}
	if resp.RefreshToken != nil {
		m.creds.Save(keystore.KeyRefreshToken, *resp.RefreshToken)
	}

	m.st.Update(func(s *State) {
		if resp.User != nil {
			u := *resp.User
			s.CurrentUser = &u
		}
		s.Authenticated = true
	})
	m.log.Info("signed in", zap.Bool("user_included", resp.User != nil))
}

// Logout forgets every credential and revokes the refresh token on a best-effort
// basis. Calling it again is harmless.
func (m *Manager) Logout(ctx context.Context) {
	m.enter(false)
	defer m.leave()
	m.logout(ctx, 0)
}

// logout clears the credentials and resets the state. A non-zero gen makes it
// conditional: nothing happens unless gen is still the latest generation, and the
// result reports whether the session was torn down.
func (m *Manager) logout(ctx context.Context, gen uint64) bool {
	var (
		refresh    string
		hasRefresh bool
	)
	reset := func(s *State) {
		refresh, hasRefresh = m.creds.Get(keystore.KeyRefreshToken)
		m.creds.ClearAll()
		s.CurrentUser = nil
		s.Authenticated = false
	}

	if gen == 0 {
		m.st.Begin()
		m.st.Update(reset)
	} else {
		if !m.st.Commit(gen, reset) {
			return false
		}
		m.st.Begin()
	}

	if hasRefresh {
		err := m.api.Do(ctx, sdk.RouteLogout, http.MethodDelete, logoutRequest{RefreshToken: refresh}, false, nil)
		if err != nil {
			m.log.Debug("logout request failed", zap.Error(err))
		}
	}
	m.log.Info("signed out")
	return true
}

// FetchProfile replaces the current user with the server's copy. An unauthorized
// answer means the stored token is dead: the session is logged out and nil returned,
// unless a newer sign-in has replaced that token in the meantime. Other failures are
// recorded in LastError and returned.
func (m *Manager) FetchProfile(ctx context.Context) error {
	gen := m.st.Begin()

	resp, err := sdk.Request[schema.UserResponse](ctx, m.api, sdk.RouteProfile, http.MethodGet, nil, true)
	if errors.Is(err, sdk.ErrUnauthorized) {
		if m.logout(ctx, gen) {
			m.log.Info("profile refresh unauthorized, logged out")
		} else {
			m.log.Debug("ignored unauthorized answer for a replaced session")
		}
		return nil
	}
	if err != nil {
		m.st.Commit(gen, func(s *State) { s.LastError = err.Error() })
		return err
	}

	m.st.Commit(gen, func(s *State) {
		u := resp.User
		s.CurrentUser = &u
	})
	return nil
}

// UpdateProfile sends only the fields set in p and replaces the current user.
func (m *Manager) UpdateProfile(ctx context.Context, p ProfileUpdate) error {
	m.enter(true)
	defer m.leave()

	body := profileRequest{Profile: profileData{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		FacebookURL:  link(p.SocialLinks, "facebook"),
		InstagramURL: link(p.SocialLinks, "instagram"),
		LinkedinURL:  link(p.SocialLinks, "linkedin"),
	}}

	gen := m.st.Begin()
	resp, err := sdk.Request[schema.UserResponse](ctx, m.api, sdk.RouteProfile, http.MethodPatch, body, true)
	if err != nil {
		return err
	}
	m.st.Commit(gen, func(s *State) {
		u := resp.User
		s.CurrentUser = &u
	})
	return nil
}

func link(links map[string]string, name string) *string {
	v, ok := links[name]
	if !ok {
		return nil
	}
	return &v
}

// UploadProfilePhoto uploads a profile photo and refreshes the profile.
func (m *Manager) UploadProfilePhoto(ctx context.Context, data []byte) error {
	return m.upload(ctx, sdk.RouteUploadPhoto, "photo", data)
}

// UploadIDCard uploads an identity document image and refreshes the profile.
func (m *Manager) UploadIDCard(ctx context.Context, data []byte) error {
	return m.upload(ctx, sdk.RouteUploadIDCard, "id_card", data)
}

func (m *Manager) upload(ctx context.Context, route sdk.Route, field string, data []byte) error {
	m.enter(true)
	defer m.leave()

	mimeType, ext := sniffImage(data)
	if _, err := m.api.UploadFile(ctx, route, data, field+ext, field, mimeType); err != nil {
		return err
	}
	// the server recomputes image URLs and completeness; a failed refresh is
	// already recorded in LastError
	_ = m.FetchProfile(ctx)
	return nil
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// sniffImage detects the image type of data, defaulting to JPEG.
func sniffImage(data []byte) (mimeType, ext string) {
	detected := http.DetectContentType(data)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	if ext, ok := imageExtensions[detected]; ok {
		return detected, ext
	}
	return "image/jpeg", ".jpg"
}

func (m *Manager) enter(clearError bool) {
	m.st.Update(func(s *State) {
		s.Loading = m.busy.Enter()
		if clearError {
			s.LastError = ""
		}
	})
}

func (m *Manager) leave() {
	m.st.Update(func(s *State) { s.Loading = m.busy.Leave() })
}
