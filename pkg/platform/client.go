package platform

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"subscraper/pkg/auth"
	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
)

// Client is the platform API client. Every request carries the account's
// cookies plus per-request signed headers from the Signer.
type Client struct {
	httpClient *http.Client
	account    *auth.Account
	signer     *Signer
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new API client
func NewClient(account *auth.Account, signer *Signer, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		account: account,
		signer:  signer,
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetBaseURL overrides the API base URL (used by tests)
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

// ConfigureBackend applies the advanced backend option to the transport
func (c *Client) ConfigureBackend(backend string) {
	switch backend {
	case "http1":
		c.httpClient.Transport = &http.Transport{
			TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
		}
	case "http2":
		c.httpClient.Transport = &http.Transport{
			ForceAttemptHTTP2: true,
		}
	default:
		// auto: default transport negotiates
	}
}

// UserID returns the authed account id used in signed headers
func (c *Client) UserID() string {
	return c.account.Auth.AuthID
}

// rebase swaps the canonical base URL for the configured one
func (c *Client) rebase(u string) string {
	if c.baseURL == BaseURL {
		return u
	}
	return c.baseURL + strings.TrimPrefix(u, BaseURL)
}

// cookieHeader builds the auth cookie string
func (c *Client) cookieHeader() string {
	a := c.account.Auth
	cookie := fmt.Sprintf("sess=%s; auth_id=%s", a.Sess, a.AuthID)
	if a.AuthUID != "" {
		cookie += fmt.Sprintf("; auth_uid_%s=%s", a.AuthID, a.AuthUID)
	}
	return cookie
}

// applyHeaders sets the auth and signed headers on a request
func (c *Client) applyHeaders(req *http.Request) error {
	a := c.account.Auth

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", a.UserAgent)
	req.Header.Set("x-bc", a.XBC)
	req.Header.Set("Cookie", c.cookieHeader())

	signed, err := c.signer.Sign(req.URL.String(), a.AuthID)
	if err != nil {
		return err
	}
	for key, value := range signed {
		req.Header.Set(key, value)
	}

	return nil
}

// doRequest performs an HTTP request with auth and signed headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if err := c.applyHeaders(req); err != nil {
		return nil, err
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "network error", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// get performs a GET request against an API URL
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rebase(rawURL), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}
	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps HTTP statuses onto the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &errs.Error{
			Type:    errs.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		logger.LogRateLimit(resp.Request.URL.Path, retryAfter)
		return &errs.Error{
			Type:    errs.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errs.Error{
			Type:    errs.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// CheckAuth verifies the stored credentials by fetching the authed user
func (c *Client) CheckAuth(ctx context.Context) (*User, error) {
	var me User
	if err := c.GetJSON(ctx, GetMeURL(), &me); err != nil {
		return nil, err
	}

	if me.ID == 0 {
		return nil, errs.New(errs.ErrorTypeAuth, "auth check returned no user")
	}

	c.logger.InfoWithFields("authenticated", map[string]interface{}{
		"user_id":  me.ID,
		"username": me.Username,
	})

	return &me, nil
}

// GetUser looks up a model by username
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("invalid username: %s", username))
	}

	var user User
	if err := c.GetJSON(ctx, GetUserURL(username), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetSubscriptions fetches one page of the subscriptions list
func (c *Client) GetSubscriptions(ctx context.Context, offset, limit int) (*SubscriptionsResponse, error) {
	var resp SubscriptionsResponse
	if err := c.GetJSON(ctx, GetSubscriptionsURL(offset, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTimeline fetches one page of timeline posts
func (c *Client) GetTimeline(ctx context.Context, userID int64, cursor string, limit int) (*PostsResponse, error) {
	return c.getPosts(ctx, GetTimelineURL(userID, cursor, limit))
}

// GetPinned fetches one page of pinned posts
func (c *Client) GetPinned(ctx context.Context, userID int64, cursor string, limit int) (*PostsResponse, error) {
	return c.getPosts(ctx, GetPinnedURL(userID, cursor, limit))
}

// GetArchived fetches one page of archived posts
func (c *Client) GetArchived(ctx context.Context, userID int64, cursor string, limit int) (*PostsResponse, error) {
	return c.getPosts(ctx, GetArchivedURL(userID, cursor, limit))
}

// GetStreams fetches one page of recorded streams
func (c *Client) GetStreams(ctx context.Context, userID int64, cursor string, limit int) (*PostsResponse, error) {
	return c.getPosts(ctx, GetStreamsURL(userID, cursor, limit))
}

// GetLabelPosts fetches one page of posts under a label
func (c *Client) GetLabelPosts(ctx context.Context, userID, labelID int64, cursor string, limit int) (*PostsResponse, error) {
	return c.getPosts(ctx, GetLabelPostsURL(userID, labelID, cursor, limit))
}

func (c *Client) getPosts(ctx context.Context, url string) (*PostsResponse, error) {
	var resp PostsResponse
	if err := c.GetJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLabels fetches one page of a model's labels
func (c *Client) GetLabels(ctx context.Context, userID int64, offset, limit int) (*LabelsResponse, error) {
	var resp LabelsResponse
	if err := c.GetJSON(ctx, GetLabelsURL(userID, offset, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStories fetches all current stories for a model
func (c *Client) GetStories(ctx context.Context, userID int64) ([]Story, error) {
	var stories []Story
	if err := c.GetJSON(ctx, GetStoriesURL(userID), &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// GetHighlights fetches one page of a model's highlights
func (c *Client) GetHighlights(ctx context.Context, userID int64, offset, limit int) ([]Highlight, error) {
	var resp struct {
		List    []Highlight `json:"list"`
		HasMore bool        `json:"hasMore"`
	}
	if err := c.GetJSON(ctx, GetHighlightsURL(userID, offset, limit), &resp); err != nil {
		return nil, err
	}
	return resp.List, nil
}

// GetHighlight fetches the stories inside one highlight
func (c *Client) GetHighlight(ctx context.Context, highlightID int64) (*Highlight, error) {
	var highlight Highlight
	if err := c.GetJSON(ctx, GetHighlightURL(highlightID), &highlight); err != nil {
		return nil, err
	}
	return &highlight, nil
}

// GetMessages fetches one page of chat messages.
// lastID of 0 fetches the newest page.
func (c *Client) GetMessages(ctx context.Context, chatID, lastID int64, limit int) (*MessagesResponse, error) {
	var resp MessagesResponse
	if err := c.GetJSON(ctx, GetMessagesURL(chatID, lastID, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPurchased fetches one page of purchased content
func (c *Client) GetPurchased(ctx context.Context, offset, limit int) (*PostsResponse, error) {
	return c.getPosts(ctx, GetPurchasedURL(offset, limit))
}

// LikePost marks a post as favorite
func (c *Client) LikePost(ctx context.Context, postID, userID int64) error {
	return c.favorite(ctx, http.MethodPost, postID, userID)
}

// UnlikePost removes a favorite mark
func (c *Client) UnlikePost(ctx context.Context, postID, userID int64) error {
	return c.favorite(ctx, http.MethodDelete, postID, userID)
}

func (c *Client) favorite(ctx context.Context, method string, postID, userID int64) error {
	req, err := http.NewRequestWithContext(ctx, method, c.rebase(GetFavoriteURL(postID, userID)), nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkResponseStatus(resp)
}

// DownloadMedia streams a media file to the writer, returning bytes written
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}

	// Media CDN URLs are pre-signed; only the browser headers go along
	req.Header.Set("User-Agent", c.account.Auth.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeNetwork, "download failed", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errs.Wrap(errs.ErrorTypeNetwork, "download interrupted", err)
	}

	return n, nil
}
