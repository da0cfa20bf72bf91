// Package twitter talks to the Twitter REST v1.1 API on behalf of the
// authenticated user: timeline pages, tweet deletion and friendships.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the REST v1.1 root.
	DefaultBaseURL = "https://api.twitter.com/1.1"
	// DefaultRequestTimeout bounds a single HTTP round trip.
	DefaultRequestTimeout = 30 * time.Second
	// MaxPageSize is the largest count user_timeline and friends/list accept.
	MaxPageSize = 200
)

// Client is the remote collection the purge pipeline works against.
type Client interface {
	// UserTimeline returns up to count tweets with ID <= maxID, newest first.
	// An empty maxID starts from the most recent tweet.
	UserTimeline(ctx context.Context, maxID string, count int) ([]Tweet, error)

	// DestroyTweet deletes a single tweet.
	DestroyTweet(ctx context.Context, id string) error

	// Friends returns one cursor page of followed accounts. An empty cursor starts from the top.
	Friends(ctx context.Context, cursor string, count int) (FriendsPage, error)

	// DestroyFriendship unfollows userID.
	DestroyFriendship(ctx context.Context, userID string) error
}

// Credentials are the four OAuth 1.0a values of a user-context app.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// APIConfig configures APIClient.
type APIConfig struct {
	Credentials
	BaseURL            string
	RequestTimeout     time.Duration
	MinRequestInterval time.Duration // spacing between any two requests, 0 disables
}

// APIClient implements Client over HTTPS with OAuth 1.0a request signing.
type APIClient struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewAPIClient creates a signed REST client.
func NewAPIClient(cfg APIConfig, log *logger.Logger) *APIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	oauthCfg := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	httpClient := oauthCfg.Client(oauth1.NoContext, token)
	httpClient.Timeout = cfg.RequestTimeout

	limit := rate.Inf
	if cfg.MinRequestInterval > 0 {
		limit = rate.Every(cfg.MinRequestInterval)
	}

	return &APIClient{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
	}
}

// UserTimeline fetches statuses/user_timeline.
func (c *APIClient) UserTimeline(ctx context.Context, maxID string, count int) ([]Tweet, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(clampCount(count)))
	q.Set("include_rts", "true")
	q.Set("trim_user", "true")
	q.Set("tweet_mode", "extended")
	if maxID != "" {
		q.Set("max_id", maxID)
	}

	var tweets []Tweet
	if err := c.do(ctx, http.MethodGet, "/statuses/user_timeline.json", q, &tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

// DestroyTweet calls statuses/destroy/:id.
func (c *APIClient) DestroyTweet(ctx context.Context, id string) error {
	path := "/statuses/destroy/" + url.PathEscape(id) + ".json"
	q := url.Values{}
	q.Set("trim_user", "true")
	return c.do(ctx, http.MethodPost, path, q, nil)
}

// Friends fetches friends/list.
func (c *APIClient) Friends(ctx context.Context, cursor string, count int) (FriendsPage, error) {
	if cursor == "" {
		cursor = "-1"
	}
	q := url.Values{}
	q.Set("cursor", cursor)
	q.Set("count", strconv.Itoa(clampCount(count)))
	q.Set("skip_status", "false")
	q.Set("include_user_entities", "false")

	var resp struct {
		Users         []User `json:"users"`
		NextCursorStr string `json:"next_cursor_str"`
	}
	if err := c.do(ctx, http.MethodGet, "/friends/list.json", q, &resp); err != nil {
		return FriendsPage{}, err
	}
	return FriendsPage{Users: resp.Users, NextCursor: resp.NextCursorStr}, nil
}

// DestroyFriendship calls friendships/destroy.
func (c *APIClient) DestroyFriendship(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("user_id", userID)
	return c.do(ctx, http.MethodPost, "/friendships/destroy.json", q, nil)
}

// do executes a single signed request and decodes a JSON body into out.
func (c *APIClient) do(ctx context.Context, method, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	// v1.1 takes parameters in the query string for both GET and POST.
	endpoint := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp, respBody)
		c.logger.DebugCtx(ctx, "twitter api error",
			logger.Field{Key: "method", Value: method},
			logger.Field{Key: "path", Value: path},
			logger.Field{Key: "status_code", Value: resp.StatusCode},
			logger.Field{Key: "error", Value: apiErr.Error()})
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
	}
	return nil
}

func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Errors []ErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Details = payload.Errors
	}

	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if sec, err := strconv.ParseInt(reset, 10, 64); err == nil {
			apiErr.ResetAt = time.Unix(sec, 0)
		}
	}
	return apiErr
}

func clampCount(count int) int {
	if count <= 0 || count > MaxPageSize {
		return MaxPageSize
	}
	return count
}
