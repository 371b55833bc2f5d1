package yggAuth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

var errUnexpectedCall = errors.New("unexpected remote call")

type fakeClient struct {
	mu           sync.Mutex
	calls        []string
	authReqs     []AuthenticateRequest
	validateReqs []TokenRequest
	refreshReqs  []TokenRequest

	authenticate func(context.Context, AuthenticateRequest) (*AuthenticateResponse, error)
	validate     func(context.Context, TokenRequest) (*ValidateResponse, error)
	refresh      func(context.Context, TokenRequest) (*RefreshResponse, error)
}

func (c *fakeClient) Authenticate(ctx context.Context, req AuthenticateRequest) (*AuthenticateResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, "authenticate")
	c.authReqs = append(c.authReqs, req)
	fn := c.authenticate
	c.mu.Unlock()

	if fn == nil {
		return nil, errUnexpectedCall
	}
	return fn(ctx, req)
}

func (c *fakeClient) Validate(ctx context.Context, req TokenRequest) (*ValidateResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, "validate")
	c.validateReqs = append(c.validateReqs, req)
	fn := c.validate
	c.mu.Unlock()

	if fn == nil {
		return nil, errUnexpectedCall
	}
	return fn(ctx, req)
}

func (c *fakeClient) Refresh(ctx context.Context, req TokenRequest) (*RefreshResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, "refresh")
	c.refreshReqs = append(c.refreshReqs, req)
	fn := c.refresh
	c.mu.Unlock()

	if fn == nil {
		return nil, errUnexpectedCall
	}
	return fn(ctx, req)
}

func (c *fakeClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func validateOK(context.Context, TokenRequest) (*ValidateResponse, error) {
	return &ValidateResponse{Success: true, StatusCode: 204}, nil
}

func validateRejected(context.Context, TokenRequest) (*ValidateResponse, error) {
	return &ValidateResponse{
		Success:    false,
		StatusCode: 403,
		Error:      &Error{Kind: "ForbiddenOperationException", Message: "Invalid token.", StatusCode: 403},
	}, nil
}

// waitForCancel blocks until ctx ends and reports it the way a transport would.
func waitForCancel(ctx context.Context) *Error {
	<-ctx.Done()
	return &Error{Message: ctx.Err().Error(), Cause: ctx.Err()}
}

var (
	testProfile = &Profile{ID: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"), Name: "Notch"}
	testUser    = &UserData{ID: "9b15dea6606e47a4a241420251703c59"}
)

func testSession() Session {
	return Session{
		AccessToken:     "token-1",
		SelectedProfile: testProfile,
		User:            testUser,
	}
}

func buildTestEngine(t *testing.T, cfg Config, client RemoteClient) *Engine {
	t.Helper()

	engine, err := New().WithConfig(cfg).WithRemoteClient(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func metricsTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
