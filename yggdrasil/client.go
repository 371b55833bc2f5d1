package yggdrasil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	yggAuth "github.com/nsiso/yggAuth"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Mojang authentication server.
	DefaultBaseURL = "https://authserver.mojang.com"

	// DefaultAgentName and DefaultAgentVersion identify the game to the server.
	DefaultAgentName    = "Minecraft"
	DefaultAgentVersion = 1

	// DefaultTimeout bounds a request when the caller's context has no deadline.
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 1 << 20
)

// ErrInvalidBaseURL is returned by New for a base URL that is not absolute http(s).
var ErrInvalidBaseURL = errors.New("yggdrasil: invalid base URL")

// Client talks to one Yggdrasil authentication server. It is safe for
// concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	agent       agent
	clientToken string
	userAgent   string
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the server base, e.g. "https://skin.example.com/api/yggdrasil/authserver".
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAgent sets the agent sent with authenticate requests.
func WithAgent(name string, version int) Option {
	return func(c *Client) { c.agent = agent{Name: name, Version: version} }
}

// WithClientToken pins the client token. Servers bind issued access tokens
// to it, so launchers persist it across runs.
func WithClientToken(token string) Option {
	return func(c *Client) { c.clientToken = token }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger for per-request debug lines. A nil logger is
// ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client. Without WithClientToken a random token is generated.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		agent:      agent{Name: DefaultAgentName, Version: DefaultAgentVersion},
		userAgent:  "yggauth",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.baseURL = strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	u, err := url.Parse(c.baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(ErrInvalidBaseURL, "%q", c.baseURL)
	}
	if c.clientToken == "" {
		c.clientToken = UndashedID(uuid.New())
	}
	c.logger = c.logger.Named("yggdrasil")

	return c, nil
}

// ClientToken returns the client token sent with every request.
func (c *Client) ClientToken() string {
	return c.clientToken
}

// BaseURL returns the server base used when a request carries no address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

var _ yggAuth.RemoteClient = (*Client)(nil)

// Authenticate exchanges credentials for an access token.
func (c *Client) Authenticate(ctx context.Context, req yggAuth.AuthenticateRequest) (*yggAuth.AuthenticateResponse, error) {
	body := authenticateRequest{
		Agent:       c.agent,
		Username:    req.Credentials.Username,
		Password:    req.Credentials.Password,
		ClientToken: c.clientToken,
		RequestUser: true,
	}

	var out authenticateResponse
	res, err := c.post(ctx, "authenticate", req.Address, req.Arguments, body, &out)
	if err != nil {
		return nil, err
	}

	resp := &yggAuth.AuthenticateResponse{
		Success:    res.ok(),
		StatusCode: res.status,
		Error:      res.err,
	}
	if !resp.Success {
		return resp, nil
	}

	selected, perr := out.SelectedProfile.profile()
	available, aerr := profiles(out.AvailableProfiles)
	if perr = errors.CombineErrors(perr, aerr); perr != nil {
		return &yggAuth.AuthenticateResponse{StatusCode: res.status, Error: malformed(res.status, perr)}, nil
	}

	resp.AccessToken = out.AccessToken
	resp.SelectedProfile = selected
	resp.AvailableProfiles = available
	resp.User = out.User.user()
	return resp, nil
}

// Validate checks that accessToken is still accepted. Servers answer 204.
func (c *Client) Validate(ctx context.Context, req yggAuth.TokenRequest) (*yggAuth.ValidateResponse, error) {
	body := validateRequest{AccessToken: req.AccessToken, ClientToken: c.clientToken}

	res, err := c.post(ctx, "validate", req.Address, req.Arguments, body, nil)
	if err != nil {
		return nil, err
	}
	return &yggAuth.ValidateResponse{
		Success:    res.ok(),
		StatusCode: res.status,
		Error:      res.err,
	}, nil
}

// Refresh trades accessToken for a new one.
func (c *Client) Refresh(ctx context.Context, req yggAuth.TokenRequest) (*yggAuth.RefreshResponse, error) {
	body := refreshRequest{
		AccessToken: req.AccessToken,
		ClientToken: c.clientToken,
		RequestUser: true,
	}

	var out refreshResponse
	res, err := c.post(ctx, "refresh", req.Address, req.Arguments, body, &out)
	if err != nil {
		return nil, err
	}

	resp := &yggAuth.RefreshResponse{
		Success:    res.ok(),
		StatusCode: res.status,
		Error:      res.err,
	}
	if !resp.Success {
		return resp, nil
	}

	// The server has already rotated the token at this point, so an
	// unreadable profile is dropped rather than failing the refresh.
	selected, perr := out.SelectedProfile.profile()
	if perr != nil {
		c.logger.Warn("refresh returned unreadable profile; keeping current profile",
			zap.Int("status", res.status),
			zap.Error(perr),
		)
		selected = nil
	}
	resp.AccessToken = out.AccessToken
	resp.SelectedProfile = selected
	resp.User = out.User.user()
	return resp, nil
}

type callResult struct {
	status int
	err    *yggAuth.Error
}

func (r callResult) ok() bool {
	return r.err == nil && r.status >= 200 && r.status < 300
}

func malformed(status int, cause error) *yggAuth.Error {
	return &yggAuth.Error{
		Message:    "malformed server response",
		StatusCode: status,
		Cause:      cause,
	}
}

// post sends body to op and decodes a 2xx reply into out. Only request
// construction failures are returned as errors.
func (c *Client) post(ctx context.Context, op, address string, args []string, body, out any) (callResult, error) {
	endpoint, err := c.endpoint(op, address, args)
	if err != nil {
		return callResult{}, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return callResult{}, errors.Wrapf(err, "encode %s request", op)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return callResult{}, errors.Wrapf(err, "build %s request", op)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return callResult{err: transportError(op, err)}, nil
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	status := httpResp.StatusCode
	c.logger.Debug("request finished",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		e := transportError(op, err)
		e.StatusCode = status
		return callResult{status: status, err: e}, nil
	}

	if status < 200 || status >= 300 {
		return callResult{status: status, err: decodeError(status, data)}, nil
	}

	if out != nil {
		if len(bytes.TrimSpace(data)) == 0 {
			return callResult{status: status, err: &yggAuth.Error{
				Message:    "empty response body",
				StatusCode: status,
			}}, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return callResult{status: status, err: malformed(status, errors.Wrapf(err, "decode %s response", op))}, nil
		}
	}

	return callResult{status: status}, nil
}

// endpoint resolves the request URL and appends args to its query in order.
// Each arg is "key=value" or a bare "key".
func (c *Client) endpoint(op, address string, args []string) (string, error) {
	raw := address
	if raw == "" {
		raw = c.baseURL + "/" + op
	}
	if len(args) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parse %s address", op)
	}

	parts := make([]string, 0, len(args)+1)
	if u.RawQuery != "" {
		parts = append(parts, u.RawQuery)
	}
	for _, arg := range args {
		if arg == "" {
			continue
		}
		key, value, hasValue := strings.Cut(arg, "=")
		if hasValue {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
		} else {
			parts = append(parts, url.QueryEscape(key))
		}
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}

func transportError(op string, err error) *yggAuth.Error {
	return &yggAuth.Error{
		Message: err.Error(),
		Cause:   errors.Wrapf(err, "%s request", op),
	}
}

func decodeError(status int, data []byte) *yggAuth.Error {
	var body errorResponse
	if len(bytes.TrimSpace(data)) != 0 && json.Unmarshal(data, &body) == nil && (body.Error != "" || body.ErrorMessage != "") {
		return body.toError(status)
	}
	return &yggAuth.Error{
		Message:    http.StatusText(status),
		StatusCode: status,
	}
}
