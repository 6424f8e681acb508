// Package devapitest starts the development API on a loopback listener and wires a
// client to it, for tests of the managers.
package devapitest

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nightpass/nightpass/internal/devapi"
	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"github.com/stretchr/testify/require"
)

// OTP is the verification code the test server accepts.
const OTP = "123456"

// AdminPhone administers seeded venues 7 and 8.
const AdminPhone = "+995555000999"

type Env struct {
	API    *devapi.Handler
	Server *httptest.Server
	Creds  *keystore.MemStore
	Client *sdk.Client

	hits atomic.Int64
}

// Start serves a seeded development API for the lifetime of t.
func Start(t testing.TB) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &Env{
		API:   devapi.New(devapi.Options{OTP: OTP}),
		Creds: keystore.NewMemStore(nil, nil, nil),
	}
	require.NoError(t, env.API.Store.Seed(AdminPhone))

	router := env.API.Router()
	env.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.hits.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(env.Server.Close)

	c, err := sdk.New(sdk.Options{BaseURL: env.Server.URL}, env.Creds)
	require.NoError(t, err)
	env.Client = c
	return env
}

// Hits is the number of requests the server has received.
func (e *Env) Hits() int64 {
	return e.hits.Load()
}

// SignIn logs into the account behind phone, creating it first if needed, and
// stores its tokens in Creds.
func (e *Env) SignIn(t testing.TB, phone string) {
	t.Helper()
	e.signIn(t, phone, e.Client, e.Creds)
}

// ClientFor returns a second client with its own credentials, signed in as phone.
func (e *Env) ClientFor(t testing.TB, phone string) *sdk.Client {
	t.Helper()
	creds := keystore.NewMemStore(nil, nil, nil)
	c, err := sdk.New(sdk.Options{BaseURL: e.Server.URL}, creds)
	require.NoError(t, err)
	e.signIn(t, phone, c, creds)
	return c
}

func (e *Env) signIn(t testing.TB, phone string, c *sdk.Client, creds keystore.Writer) {
	t.Helper()
	// an existing account is fine
	_, _ = e.API.Store.AddUser(phone, "Test", "User")

	ctx := t.Context()
	require.NoError(t, c.Do(ctx, sdk.RouteLogin, http.MethodPost,
		map[string]string{"phone_number": phone}, false, nil))

	var resp schema.AuthResponse
	require.NoError(t, c.Do(ctx, sdk.RouteConfirmLogin, http.MethodPost,
		map[string]string{"phone_number": phone, "sms_code": OTP}, false, &resp))
	require.NotNil(t, resp.AccessToken)
	require.NotNil(t, resp.RefreshToken)

	creds.Save(keystore.KeyAccessToken, *resp.AccessToken)
	creds.Save(keystore.KeyRefreshToken, *resp.RefreshToken)
}
