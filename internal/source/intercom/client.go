package intercom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/helpdesk-sync/internal/model"
	"github.com/nhle/helpdesk-sync/internal/source"
)

// apiVersion is sent on every request so response shapes stay stable.
const apiVersion = "2.9"

// perPage is the page size requested from the conversations listing.
const perPage = 50

// Client is a thin HTTP client for the Intercom REST API. It handles
// Bearer token authentication, the Intercom-Version header, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new Intercom HTTP client. The baseURL should be
// the API root (e.g., https://api.intercom.io). The token is an access
// token used for Bearer authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// ListConversations fetches one page of the conversations listing.
// An empty cursor requests the first page; a non-empty cursor is
// passed through as the starting_after parameter.
func (c *Client) ListConversations(
	ctx context.Context,
	cursor string,
) (*ConversationPage, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	if cursor != "" {
		params.Set("starting_after", cursor)
	}

	var page ConversationPage
	if err := c.get(ctx, "/conversations?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Me fetches the authenticated admin's identity, including the
// workspace (app) the token belongs to.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.get(ctx, "/me", &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// get is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON deserialization.
func (c *Client) get(
	ctx context.Context,
	path string,
	result interface{},
) error {
	reqURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, reqURL, nil,
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Intercom-Version", apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request GET %s: %w", path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on GET %s", path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &source.AuthError{
				SourceType: model.SourceTypeIntercom,
				Message: fmt.Sprintf(
					"authentication failed (401): check your "+
						"access token for %s", c.baseURL,
				),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr ErrorResponse
			if json.Unmarshal(respBody, &apiErr) == nil &&
				len(apiErr.Errors) > 0 {
				msgs := make([]string, 0, len(apiErr.Errors))
				for _, e := range apiErr.Errors {
					msgs = append(msgs, e.Message)
				}
				return fmt.Errorf(
					"intercom API error (%d) on GET %s: %s",
					resp.StatusCode, path, strings.Join(msgs, "; "),
				)
			}
			return fmt.Errorf(
				"unexpected status %d on GET %s: %s",
				resp.StatusCode, path, string(respBody),
			)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from GET %s: %w", path, err,
			)
		}

		return nil
	}

	return fmt.Errorf(
		"max retries (%d) exceeded: %w", c.maxRetries, lastErr,
	)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
