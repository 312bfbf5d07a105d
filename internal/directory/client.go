package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/NickRomanek/SasWatch-sub002/internal/status"
)

const (
	// DefaultTimeout is the default timeout for a single page request
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for directory requests
	UserAgent = "saswatch-sync/1.0"

	// forbiddenHint is surfaced with permission failures so an operator
	// knows what to fix
	forbiddenHint = "grant read consent for audit logs (AuditLog.Read.All) to the sync application"
)

// Client fetches pages of sign-in records from the directory service.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/NickRomanek/SasWatch-sub002/internal/directory Client
type Client interface {
	// FetchPage issues one paginated request for sign-ins with
	// createdDateTime >= since, ordered ascending. When pageToken is
	// non-empty it continues from a previous page's NextLink and the
	// since/pageSize parameters are ignored.
	FetchPage(ctx context.Context, tenantID uuid.UUID, since time.Time, pageSize int, pageToken string) (*Page, error)
}

// DefaultClient is the default HTTP-backed directory client.
type DefaultClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// ClientOption configures a DefaultClient.
type ClientOption func(*DefaultClient)

// WithHTTPClient overrides the underlying HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *DefaultClient) {
		c.client = hc
	}
}

// NewClient creates a directory client for the given base URL and bearer
// token. If timeout is 0, DefaultTimeout is used.
func NewClient(baseURL, token string, timeout time.Duration, opts ...ClientOption) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// signInsResponse is the wire shape of a sign-ins page.
type signInsResponse struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink,omitempty"`
}

// FetchPage performs one page request against the sign-ins endpoint.
func (c *DefaultClient) FetchPage(
	ctx context.Context, tenantID uuid.UUID, since time.Time, pageSize int, pageToken string,
) (*Page, error) {
	requestURL := pageToken
	if requestURL == "" {
		requestURL = c.signInsURL(tenantID, since, pageSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{
			Class:   status.ErrorClassTransient,
			Message: fmt.Sprintf("request to directory service failed: %v", err),
			Err:     err,
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &Error{
			Class:   status.ErrorClassTransient,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Err:     err,
		}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &Error{
			Class:   status.ErrorClassTransient,
			Message: fmt.Sprintf("response exceeds maximum allowed size of %d bytes", MaxResponseSize),
		}
	}

	var parsed signInsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{
			Class:   status.ErrorClassTransient,
			Message: fmt.Sprintf("failed to decode sign-ins page: %v", err),
			Err:     err,
		}
	}

	page := &Page{
		Records:  make([]SignInRecord, 0, len(parsed.Value)),
		NextLink: parsed.NextLink,
		HasMore:  parsed.NextLink != "",
	}
	for _, raw := range parsed.Value {
		var rec SignInRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &Error{
				Class:   status.ErrorClassTransient,
				Message: fmt.Sprintf("failed to decode sign-in record: %v", err),
				Err:     err,
			}
		}
		if rec.ID == "" {
			return nil, &Error{
				Class:   status.ErrorClassTransient,
				Message: "sign-in record missing id",
			}
		}
		rec.Raw = raw
		page.Records = append(page.Records, rec)
	}

	if n := len(page.Records); n > 0 {
		page.NextSince = page.Records[n-1].CreatedDateTime
	}

	return page, nil
}

// signInsURL builds the first-page URL for a tenant's sign-ins filtered
// to createdDateTime >= since, ordered ascending.
func (c *DefaultClient) signInsURL(tenantID uuid.UUID, since time.Time, pageSize int) string {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("createdDateTime ge %s", since.UTC().Format(time.RFC3339)))
	q.Set("$orderby", "createdDateTime asc")
	q.Set("$top", strconv.Itoa(pageSize))
	return fmt.Sprintf("%s/v1/tenants/%s/auditLogs/signIns?%s", c.baseURL, tenantID, q.Encode())
}

// classifyResponse maps an HTTP error response to a classified Error.
func classifyResponse(resp *http.Response) *Error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &Error{
			Class:      status.ErrorClassThrottled,
			StatusCode: resp.StatusCode,
			Message:    "directory service rate limit exceeded, try again shortly",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{
			Class:      status.ErrorClassForbidden,
			StatusCode: resp.StatusCode,
			Message:    "directory service denied access to audit logs",
			Hint:       forbiddenHint,
		}
	default:
		return &Error{
			Class:      status.ErrorClassTransient,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected directory response: %s", resp.Status),
		}
	}
}

// parseRetryAfter parses a Retry-After header given in seconds. Malformed
// or absent values yield zero.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
