// Package mstodo talks to Microsoft To Do through the Microsoft Graph REST API.
package mstodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure Client implements the interfaces.
var (
	_ driven.TaskWriter     = (*Client)(nil)
	_ driven.TaskListReader = (*Client)(nil)
)

// GraphBaseURL is the Microsoft Graph v1.0 root.
const GraphBaseURL = "https://graph.microsoft.com/v1.0"

const httpTimeout = 30 * time.Second

// Client creates tasks in Microsoft To Do lists.
type Client struct {
	baseURL  string
	timeZone string
	http     *http.Client
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph root, e.g. for a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for Graph requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client whose due and reminder times are interpreted
// in timeZone (an IANA name).
func NewClient(timeZone string, opts ...Option) *Client {
	c := &Client{
		baseURL:  GraphBaseURL,
		timeZone: timeZone,
		http:     &http.Client{Timeout: httpTimeout},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Destination returns DestinationTodo.
func (c *Client) Destination() domain.Destination {
	return domain.DestinationTodo
}

// ListTaskLists returns every To Do list of the signed-in user, following
// paging links.
func (c *Client) ListTaskLists(ctx context.Context, accessToken string) ([]domain.TaskList, error) {
	var lists []domain.TaskList

	next := c.baseURL + "/me/todo/lists"
	for next != "" {
		var page struct {
			Value []struct {
				ID          string `json:"id"`
				DisplayName string `json:"displayName"`
			} `json:"value"`
			NextLink string `json:"@odata.nextLink"`
		}
		if err := c.do(ctx, http.MethodGet, next, accessToken, nil, &page); err != nil {
			return nil, fmt.Errorf("list task lists: %w", err)
		}
		for _, v := range page.Value {
			lists = append(lists, domain.TaskList{ID: v.ID, DisplayName: v.DisplayName})
		}
		next = page.NextLink
	}

	return lists, nil
}

// Create adds one task to the list identified by listID.
func (c *Client) Create(ctx context.Context, accessToken, listID string, record domain.TaskRecord) (*domain.CreatedItem, error) {
	if listID == "" {
		return nil, domain.NewValidationError(domain.ReasonNoTarget)
	}

	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks", c.baseURL, url.PathEscape(listID))

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, accessToken, c.newTask(record), &created); err != nil {
		return nil, err
	}

	return &domain.CreatedItem{ID: created.ID}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, accessToken string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.UnknownError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.UnknownError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// GraphError is the error body Microsoft Graph returns.
type GraphError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *GraphError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph: status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph: %s: %s", e.Code, e.Message)
}

func (c *Client) statusError(resp *http.Response) error {
	gerr := &GraphError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error *GraphError `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
		gerr.Code = envelope.Error.Code
		gerr.Message = envelope.Error.Message
	}

	retryAfter := domain.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
	return domain.ClassifyHTTPStatus(resp.StatusCode, retryAfter, gerr)
}
