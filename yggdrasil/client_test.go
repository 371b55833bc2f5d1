package yggdrasil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	yggAuth "github.com/nsiso/yggAuth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	profileHex = "069a79f444e94726a5befca90e38aaf5"
	userHex    = "9b15dea6606e47a4a241420251703c59"
)

type recorded struct {
	path  string
	query string
	body  map[string]any
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, chan recorded) {
	t.Helper()

	seen := make(chan recorded, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		seen <- recorded{path: r.URL.Path, query: r.URL.RawQuery, body: body}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, base string, opts ...Option) *Client {
	t.Helper()
	c, err := New(append([]Option{WithBaseURL(base), WithClientToken("client-1")}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestAuthenticateSuccess(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":       "access-1",
			"clientToken":       "client-1",
			"availableProfiles": []map[string]string{{"id": profileHex, "name": "Notch"}},
			"selectedProfile":   map[string]string{"id": profileHex, "name": "Notch"},
			"user": map[string]any{
				"id":         userHex,
				"properties": []map[string]string{{"name": "preferredLanguage", "value": "en"}},
			},
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Authenticate(context.Background(), yggAuth.AuthenticateRequest{
		Credentials: yggAuth.Credentials{Username: "alice", Password: "pw"},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "access-1", resp.AccessToken)
	require.NotNil(t, resp.SelectedProfile)
	assert.Equal(t, uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"), resp.SelectedProfile.ID)
	assert.Len(t, resp.AvailableProfiles, 1)
	require.NotNil(t, resp.User)
	assert.Equal(t, userHex, resp.User.ID)
	assert.Equal(t, "en", resp.User.Properties[0].Value)

	req := <-seen
	assert.Equal(t, "/authenticate", req.path)
	assert.Equal(t, "alice", req.body["username"])
	assert.Equal(t, "pw", req.body["password"])
	assert.Equal(t, "client-1", req.body["clientToken"])
	assert.Equal(t, true, req.body["requestUser"])
	assert.Equal(t, map[string]any{"name": "Minecraft", "version": float64(1)}, req.body["agent"])
}

func TestAuthenticateRemoteError(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":        "ForbiddenOperationException",
			"errorMessage": "Invalid credentials. Invalid username or password.",
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Authenticate(context.Background(), yggAuth.AuthenticateRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ForbiddenOperationException", resp.Error.Kind)
	assert.Equal(t, "Invalid credentials. Invalid username or password.", resp.Error.Message)
	assert.Equal(t, http.StatusForbidden, resp.Error.StatusCode)
}

func TestAuthenticateNonJSONErrorBody(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusMethodNotAllowed)
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Authenticate(context.Background(), yggAuth.AuthenticateRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "Method Not Allowed", resp.Error.Message)
}

func TestAuthenticateMalformedProfile(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":     "access-1",
			"selectedProfile": map[string]string{"id": "not-a-uuid", "name": "x"},
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Authenticate(context.Background(), yggAuth.AuthenticateRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Error(t, resp.Error.Cause)
}

func TestAddressOverrideAndArguments(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, "https://unused.example.com")

	resp, err := c.Validate(context.Background(), yggAuth.TokenRequest{
		AccessToken: "access-1",
		Address:     srv.URL + "/api/yggdrasil/authserver/validate",
		Arguments:   []string{"server=main", "debug", "q=a b"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req := <-seen
	assert.Equal(t, "/api/yggdrasil/authserver/validate", req.path)
	assert.Equal(t, "server=main&debug&q=a+b", req.query)
	assert.Equal(t, "access-1", req.body["accessToken"])
	assert.Equal(t, "client-1", req.body["clientToken"])
}

func TestValidateRejected(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":        "ForbiddenOperationException",
			"errorMessage": "Invalid token.",
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Validate(context.Background(), yggAuth.TokenRequest{AccessToken: "stale"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid token.", resp.Error.Message)
}

func TestRefreshSuccess(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":     "access-2",
			"clientToken":     "client-1",
			"selectedProfile": map[string]string{"id": profileHex, "name": "Notch"},
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Refresh(context.Background(), yggAuth.TokenRequest{AccessToken: "access-1"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "access-2", resp.AccessToken)
	require.NotNil(t, resp.SelectedProfile)
	assert.Equal(t, "Notch", resp.SelectedProfile.Name)
	assert.Nil(t, resp.User)

	req := <-seen
	assert.Equal(t, "/refresh", req.path)
	assert.Equal(t, "access-1", req.body["accessToken"])
}

func TestRefreshKeepsRotatedTokenWhenProfileUnreadable(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":     "access-2",
			"clientToken":     "client-1",
			"selectedProfile": map[string]string{"id": "not-a-uuid", "name": "Notch"},
		})
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Refresh(context.Background(), yggAuth.TokenRequest{AccessToken: "access-1"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "access-2", resp.AccessToken)
	assert.Nil(t, resp.SelectedProfile)
	assert.Nil(t, resp.Error)
}

func TestRefreshTimeoutReportedAsCause(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := c.Refresh(ctx, yggAuth.TokenRequest{AccessToken: "access-1"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Zero(t, resp.StatusCode)
	require.NotNil(t, resp.Error)
	assert.True(t, errors.Is(resp.Error, context.DeadlineExceeded))
	assert.True(t, yggAuth.IsTimeout(resp.Error.Cause))
}

func TestDialFailureIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newTestClient(t, base)
	resp, err := c.Authenticate(context.Background(), yggAuth.AuthenticateRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Error(t, resp.Error.Cause)
	assert.False(t, yggAuth.IsTimeout(resp.Error.Cause))
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "ftp://example.com", "example.com/authserver"} {
		_, err := New(WithBaseURL(base))
		assert.ErrorIs(t, err, ErrInvalidBaseURL, base)
	}
}

func TestNewGeneratesClientToken(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Len(t, c.ClientToken(), 32)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	other, err := New()
	require.NoError(t, err)
	assert.NotEqual(t, c.ClientToken(), other.ClientToken())
}

func TestUndashedID(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	assert.Equal(t, profileHex, UndashedID(id))
}

func TestEngineAgainstServer(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authserver/validate":
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "ForbiddenOperationException", "errorMessage": "Invalid token."})
		case "/authserver/refresh":
			writeJSON(w, http.StatusOK, map[string]any{"accessToken": "access-2"})
		default:
			http.NotFound(w, r)
		}
	})
	c := newTestClient(t, "https://unused.example.com")

	cfg := yggAuth.DefaultConfig()
	cfg.ProxyAuthServerAddress = srv.URL + "/authserver"
	engine, err := yggAuth.New().WithConfig(cfg).WithRemoteClient(c).Build()
	require.NoError(t, err)
	defer engine.Close()

	auth := engine.NewTokenAuthenticator(yggAuth.Session{AccessToken: "access-1"})
	res := auth.Reauthenticate(context.Background())
	require.Equal(t, yggAuth.AuthSuccess, res.State, "error: %v", res.Error)
	assert.Equal(t, "access-2", auth.Session().AccessToken)

	assert.Equal(t, "/authserver/validate", (<-seen).path)
	assert.Equal(t, "/authserver/refresh", (<-seen).path)

	login := engine.NewCredentialAuthenticator(yggAuth.Credentials{Username: "alice", Password: "pw"}).
		Authenticate(context.Background())
	assert.Equal(t, yggAuth.AuthErrNotFound, login.State)
}
