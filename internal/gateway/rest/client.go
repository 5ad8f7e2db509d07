// Package rest implements the gateway over the HTTP API served by
// internal/http.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

const defaultTimeout = 15 * time.Second

// Client talks to a remote resource store. A 401 response is returned as an
// error matching gateway.ErrUnauthorized; the client never clears the
// session on its own.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *gateway.Session
}

var _ gateway.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New returns a client for baseURL. session may be nil for anonymous use.
func New(baseURL string, session *gateway.Session, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if session == nil {
		session = gateway.NewSession()
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the credential holder used for outgoing requests.
func (c *Client) Session() *gateway.Session { return c.session }

// Projects

func (c *Client) ListProjects(ctx context.Context) ([]core.Project, error) {
	var out []core.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &out, "Failed to fetch projects"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Project{}
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	var out core.Project
	err := c.do(ctx, http.MethodPost, "/projects", nil, p, &out, "Failed to create project")
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, p core.Project) (core.Project, error) {
	var out core.Project
	err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), nil, p, &out, "Failed to update project")
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil, nil, "Failed to delete project")
}

// Estimations

// EncodeQuery renders q as the query string of GET /estimations. Empty
// filters are omitted.
func EncodeQuery(q core.EstimationQuery) url.Values {
	q = q.Normalize()
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if !q.StartDate.IsEmpty() {
		v.Set("startDate", q.StartDate.String())
	}
	if !q.EndDate.IsEmpty() {
		v.Set("endDate", q.EndDate.String())
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

func (c *Client) ListEstimations(ctx context.Context, q core.EstimationQuery) (core.EstimationPage, error) {
	var out core.EstimationPage
	if err := c.do(ctx, http.MethodGet, "/estimations", EncodeQuery(q), nil, &out, "Failed to fetch estimations"); err != nil {
		return core.EstimationPage{}, err
	}
	if out.Items == nil {
		out.Items = []core.Estimation{}
	}
	return out, nil
}

func (c *Client) GetEstimation(ctx context.Context, id string) (core.Estimation, error) {
	var out core.Estimation
	err := c.do(ctx, http.MethodGet, estimationPath(id), nil, nil, &out, "Failed to fetch estimation")
	return out, err
}

func (c *Client) CreateEstimation(ctx context.Context, e core.Estimation) (core.Estimation, error) {
	var out core.Estimation
	err := c.do(ctx, http.MethodPost, "/estimations", nil, e, &out, "Failed to create estimation")
	return out, err
}

func (c *Client) UpdateEstimation(ctx context.Context, id string, e core.Estimation) (core.Estimation, error) {
	var out core.Estimation
	err := c.do(ctx, http.MethodPut, estimationPath(id), nil, e, &out, "Failed to update estimation")
	return out, err
}

func (c *Client) DeleteEstimation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, estimationPath(id), nil, nil, nil, "Failed to delete estimation")
}

// Summary fetches the server-computed totals of an estimation.
func (c *Client) Summary(ctx context.Context, id string) (core.EstimationSummary, error) {
	var out core.EstimationSummary
	err := c.do(ctx, http.MethodGet, estimationPath(id)+"/summary", nil, nil, &out, "Failed to fetch estimation")
	return out, err
}

func (c *Client) AddSection(ctx context.Context, estimationID string, s core.Section) (core.Section, error) {
	var out core.Section
	err := c.do(ctx, http.MethodPost, estimationPath(estimationID)+"/sections", nil, s, &out, "Failed to add section")
	return out, err
}

func (c *Client) UpdateSection(ctx context.Context, estimationID, sectionID string, s core.Section) (core.Section, error) {
	var out core.Section
	err := c.do(ctx, http.MethodPut, sectionPath(estimationID, sectionID), nil, s, &out, "Failed to update section")
	return out, err
}

func (c *Client) DeleteSection(ctx context.Context, estimationID, sectionID string) error {
	return c.do(ctx, http.MethodDelete, sectionPath(estimationID, sectionID), nil, nil, nil, "Failed to delete section")
}

func (c *Client) AddItem(ctx context.Context, estimationID, sectionID string, it core.Item) (core.Item, error) {
	var out core.Item
	err := c.do(ctx, http.MethodPost, sectionPath(estimationID, sectionID)+"/items", nil, it, &out, "Failed to add item")
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, estimationID, sectionID, itemID string, it core.Item) (core.Item, error) {
	var out core.Item
	err := c.do(ctx, http.MethodPut, itemPath(estimationID, sectionID, itemID), nil, it, &out, "Failed to update item")
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, estimationID, sectionID, itemID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(estimationID, sectionID, itemID), nil, nil, nil, "Failed to delete item")
}

// Accounts

type loginRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *Client) Login(ctx context.Context, email, password string) (gateway.Credential, error) {
	var out gateway.Credential
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &out, "Login failed")
	return out, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (gateway.Credential, error) {
	var out gateway.Credential
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, loginRequest{Name: name, Email: email, Password: password}, &out, "Registration failed")
	return out, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageBody
	if err := c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, loginRequest{Email: email}, &out, "Failed to process request"); err != nil {
		return "", err
	}
	return out.Message, nil
}

// do performs one request. Any failure is returned as a *gateway.Error whose
// Message is the server's {message} or fallback.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, fallback string) error {
	target := c.baseURL.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &gateway.Error{Message: fallback, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &gateway.Error{Message: fallback, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.Error{Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ge := &gateway.Error{Status: resp.StatusCode, Message: fallback}
		var mb messageBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &mb) == nil && mb.Message != "" {
			ge.Message = mb.Message
		}
		return ge
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &gateway.Error{Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func estimationPath(id string) string {
	return "/estimations/" + url.PathEscape(id)
}

func sectionPath(estimationID, sectionID string) string {
	return estimationPath(estimationID) + "/sections/" + url.PathEscape(sectionID)
}

func itemPath(estimationID, sectionID, itemID string) string {
	return sectionPath(estimationID, sectionID) + "/items/" + url.PathEscape(itemID)
}
