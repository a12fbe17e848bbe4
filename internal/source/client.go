package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

const (
	DefaultPageSize       = 250
	DefaultRateLimitDelay = 10 * time.Second
	DefaultRetryBackoff   = time.Second
	DefaultTimeout        = 30 * time.Second

	maxRateLimitAttempts = 5
	maxTransportAttempts = 3
	errorExcerpt         = 200
)

// APIError is a non-2xx response of the REST API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("testrail api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}

	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	if len(msg) > errorExcerpt {
		msg = msg[:errorExcerpt] + "..."
	}

	return &APIError{Endpoint: endpoint, StatusCode: status, Message: msg}
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimitDelay sets the pause before retrying a 429 response.
func WithRateLimitDelay(d time.Duration) Option {
	return func(c *Client) {
		c.rateLimitDelay = d
	}
}

// WithRetryBackoff sets the step of the linear backoff between transport retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.retryBackoff = d
	}
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Client talks to the TestRail REST API v2 with basic auth.
type Client struct {
	base           string
	username       string
	apiKey         string
	http           *http.Client
	rateLimitDelay time.Duration
	retryBackoff   time.Duration
	pageSize       int
}

func NewClient(baseURL, username, apiKey string, opts ...Option) *Client {
	c := Client{
		base:           apiBase(baseURL),
		username:       username,
		apiKey:         apiKey,
		http:           &http.Client{Timeout: DefaultTimeout},
		rateLimitDelay: DefaultRateLimitDelay,
		retryBackoff:   DefaultRetryBackoff,
		pageSize:       DefaultPageSize,
	}

	for _, o := range opts {
		o(&c)
	}

	return &c
}

func apiBase(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	u = strings.TrimSuffix(u, "/index.php")

	return u + "/index.php?/api/v2/"
}

func (c *Client) endpointURL(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return c.base + endpoint
	}

	return c.base + endpoint + "&" + params.Encode()
}

// Get performs a GET request and returns the response body. 429 responses are retried
// after the rate limit delay, transport errors with a linear backoff.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)
	target := c.endpointURL(endpoint, params)

	var rateLimited, failed int
	for {
		status, body, err := c.do(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			failed++
			if failed >= maxTransportAttempts {
				return nil, fmt.Errorf("get %s after %d attempts: %w", endpoint, failed, err)
			}

			delay := time.Duration(failed) * c.retryBackoff
			logger.Warn("request failed, retrying", "endpoint", endpoint, "attempt", failed, "delay", delay, "error", err)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}

			continue
		}

		if status == http.StatusTooManyRequests {
			rateLimited++
			if rateLimited >= maxRateLimitAttempts {
				return nil, newAPIError(endpoint, status, body)
			}

			logger.Warn("rate limited, retrying", "endpoint", endpoint, "attempt", rateLimited, "delay", c.rateLimitDelay)
			if err := sleep(ctx, c.rateLimitDelay); err != nil {
				return nil, err
			}

			continue
		}

		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return nil, newAPIError(endpoint, status, body)
		}

		return body, nil
	}
}

func (c *Client) do(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http.Client.Do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	return resp.StatusCode, body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// List returns the items of a list endpoint. Responses may be bare arrays or objects
// holding the array under key. Paginated endpoints are requested page by page until a
// short page is returned.
func (c *Client) List(ctx context.Context, endpoint, key string, params url.Values, paginate bool) ([]json.RawMessage, error) {
	if !paginate {
		body, err := c.Get(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}

		items, _, err := decodeList(body, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, err)
		}

		return items, nil
	}

	var out []json.RawMessage
	for offset := 0; ; offset += c.pageSize {
		page := url.Values{}
		for k, v := range params {
			page[k] = v
		}
		page.Set("limit", strconv.Itoa(c.pageSize))
		page.Set("offset", strconv.Itoa(offset))

		body, err := c.Get(ctx, endpoint, page)
		if err != nil {
			return nil, err
		}

		items, wrapped, err := decodeList(body, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, err)
		}

		out = append(out, items...)
		if !wrapped || len(items) < c.pageSize {
			return out, nil
		}
	}
}

func decodeList(body []byte, key string) ([]json.RawMessage, bool, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false, fmt.Errorf("empty response")
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, false, fmt.Errorf("json.Unmarshal: %w", err)
		}

		return items, false, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, true, fmt.Errorf("json.Unmarshal: %w", err)
		}

		raw, ok := wrapper[key]
		if !ok || bytes.Equal(raw, []byte("null")) {
			return nil, true, nil
		}

		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, true, fmt.Errorf("json.Unmarshal %s: %w", key, err)
		}

		return items, true, nil
	default:
		return nil, false, fmt.Errorf("unexpected response %.40q", body)
	}
}

func listOf[T any](ctx context.Context, c *Client, endpoint, key string, params url.Values, paginate bool) ([]T, error) {
	raw, err := c.List(ctx, endpoint, key, params, paginate)
	if err != nil {
		return nil, err
	}

	out, err := decodeAll[T](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	return out, nil
}

func setID(params url.Values, key string, id *int) {
	if id != nil {
		params.Set(key, strconv.Itoa(*id))
	}
}

func (c *Client) Projects(ctx context.Context) ([]testrail.Project, error) {
	return listOf[testrail.Project](ctx, c, "get_projects", "projects", nil, true)
}

func (c *Client) Suites(ctx context.Context, projectID int) ([]testrail.Suite, error) {
	return listOf[testrail.Suite](ctx, c, "get_suites/"+strconv.Itoa(projectID), "suites", nil, false)
}

func (c *Client) Sections(ctx context.Context, projectID int, suiteID *int) ([]testrail.Section, error) {
	params := url.Values{}
	setID(params, "suite_id", suiteID)

	return listOf[testrail.Section](ctx, c, "get_sections/"+strconv.Itoa(projectID), "sections", params, true)
}

func (c *Client) Cases(ctx context.Context, projectID int, suiteID, sectionID *int) ([]testrail.Case, error) {
	params := url.Values{}
	setID(params, "suite_id", suiteID)
	setID(params, "section_id", sectionID)

	return listOf[testrail.Case](ctx, c, "get_cases/"+strconv.Itoa(projectID), "cases", params, true)
}

func (c *Client) Priorities(ctx context.Context) ([]testrail.Priority, error) {
	return listOf[testrail.Priority](ctx, c, "get_priorities", "priorities", nil, false)
}

func (c *Client) CaseTypes(ctx context.Context) ([]testrail.CaseType, error) {
	return listOf[testrail.CaseType](ctx, c, "get_case_types", "case_types", nil, false)
}

func (c *Client) Templates(ctx context.Context, projectID int) ([]testrail.Template, error) {
	return listOf[testrail.Template](ctx, c, "get_templates/"+strconv.Itoa(projectID), "templates", nil, false)
}

func (c *Client) Milestones(ctx context.Context, projectID int) ([]testrail.Milestone, error) {
	return listOf[testrail.Milestone](ctx, c, "get_milestones/"+strconv.Itoa(projectID), "milestones", nil, true)
}
