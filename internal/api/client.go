package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/lachlan2k/school-portal/internal/metrics"
)

const maxBodySize = 4 << 20

// Envelope is the shape every API response is wrapped in
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Token   string          `json:"token,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Error is returned when the API answered with success: false
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api responded %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	loginPath  string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLoginPath(path string) Option {
	return func(c *Client) {
		c.loginPath = path
	}
}

// WithTimeout bounds every request. Zero leaves requests bounded only by their context
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		loginPath:  "/auth/login",
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithToken returns a copy of the client whose requests carry the bearer token
func (c *Client) WithToken(token string) *Client {
	scoped := *c
	if token == "" {
		return &scoped
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	scoped.httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	return &scoped
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the credentials and hands back whatever envelope came back, successful or not.
// Only transport and decoding failures are returned as errors
func (c *Client) Login(ctx context.Context, email, password string) (*Envelope, error) {
	env, _, err := c.do(ctx, "auth", http.MethodPost, c.loginPath, loginReq{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// call performs the request and unwraps data, turning success: false into *Error
func (c *Client) call(ctx context.Context, resource, method, path string, body any) (json.RawMessage, error) {
	env, status, err := c.do(ctx, resource, method, path, body)
	if err != nil {
		return nil, err
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &Error{Status: status, Message: msg}
	}

	return env.Data, nil
}

func (c *Client) do(ctx context.Context, resource, method, path string, body any) (*Envelope, int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		buff, err := json.Marshal(body)
		if err != nil {
			return nil, 0, errors.Wrap(err, "couldn't marshal request body")
		}
		reqBody = bytes.NewReader(buff)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "couldn't build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Upstream(resource, method, 0)
		return nil, 0, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer res.Body.Close()

	c.metrics.Upstream(resource, method, res.StatusCode)

	resBuff, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, res.StatusCode, errors.Wrapf(err, "couldn't read %s %s response", method, path)
	}

	env := new(Envelope)
	if len(bytes.TrimSpace(resBuff)) == 0 {
		// Some endpoints answer deletes with an empty 204
		env.Success = res.StatusCode >= 200 && res.StatusCode < 300
		return env, res.StatusCode, nil
	}

	err = json.Unmarshal(resBuff, env)
	if err != nil {
		return nil, res.StatusCode, errors.Wrapf(err, "%s %s returned a non JSON body (status %d)", method, path, res.StatusCode)
	}

	return env, res.StatusCode, nil
}
