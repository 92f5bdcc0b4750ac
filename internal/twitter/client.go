package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/michaelbrown/boarman/internal/apperr"
)

const (
	defaultBaseURL = "https://api.twitter.com"
	defaultTimeout = 30 * time.Second

	userFields  = "description,public_metrics,id,most_recent_tweet_id,pinned_tweet_id"
	tweetFields = "article,author_id,text,source"

	opLookup = "twitter profile lookup"
)

// ErrUserNotFound is the cause when the API answers without a user payload.
var ErrUserNotFound = errors.New("User not found")

// Client fetches public profiles from the Twitter/X v2 API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client authenticated with the given bearer token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// LookupProfile fetches the profile for handle (without the leading @).
// A missing token fails before any request is made.
func (c *Client) LookupProfile(ctx context.Context, handle string) (*Profile, error) {
	if c.token == "" {
		return nil, apperr.Auth(opLookup, "Twitter bearer token not found in environment variables")
	}

	q := url.Values{}
	q.Set("user.fields", userFields)
	q.Set("tweet.fields", tweetFields)
	endpoint := fmt.Sprintf("%s/2/users/by/username/%s?%s", c.baseURL, url.PathEscape(handle), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream(opLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstreamf(opLookup, "Twitter API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.Upstream(opLookup, fmt.Errorf("decoding response: %w", err))
	}
	if body.Data == nil {
		return nil, apperr.Upstream(opLookup, ErrUserNotFound)
	}

	return body.Data.profile(), nil
}
