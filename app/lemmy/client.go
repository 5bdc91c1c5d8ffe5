package lemmy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// APIError carries the HTTP status of a failed Lemmy API call so callers
// can distinguish auth failures from everything else.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lemmy API error: %d %s", e.StatusCode, e.Body)
}

// Client talks to a Lemmy instance via its HTTP API v3. The JWT obtained at
// login is cached, as are resolved community IDs; on a 401 the client
// re-authenticates once and retries. The client is owned by the single poll
// loop and is not safe for concurrent use.
type Client struct {
	baseURL     string
	username    string
	password    string
	userAgent   string
	httpClient  *http.Client
	jwt         string
	communities map[string]int
}

func NewClient(baseURL, username, password, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:     baseURL,
		username:    username,
		password:    password,
		userAgent:   userAgent,
		httpClient:  httpClient,
		communities: make(map[string]int),
	}
}

// Login authenticates against the instance and caches the JWT.
func (c *Client) Login(ctx context.Context) error {
	slog.Info("Logging in to Lemmy instance", "url", c.baseURL, "user", c.username)

	reqBody := loginRequest{
		UsernameOrEmail: c.username,
		Password:        c.password,
	}

	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v3/user/login", nil, reqBody, &resp, false); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if resp.JWT == "" {
		return fmt.Errorf("login failed: no JWT token received")
	}

	c.jwt = resp.JWT
	slog.Info("Login successful")

	return nil
}

// ResolveCommunity returns the numeric ID for a community name. IDs are
// stable for the process lifetime, so lookups are cached.
func (c *Client) ResolveCommunity(ctx context.Context, name string) (int, error) {
	if id, ok := c.communities[name]; ok {
		return id, nil
	}

	params := url.Values{}
	params.Set("name", name)

	var resp getCommunityResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/community?"+params.Encode(), nil, nil, &resp, true); err != nil {
		return 0, fmt.Errorf("failed to fetch community %q: %w", name, err)
	}

	if resp.CommunityView == nil {
		return 0, fmt.Errorf("community %q not found", name)
	}

	id := resp.CommunityView.Community.ID
	c.communities[name] = id

	return id, nil
}

// CreatePost submits a link post to a community. body is optional.
func (c *Client) CreatePost(ctx context.Context, communityID int, title, link, body string) error {
	reqBody := createPostRequest{
		CommunityID: communityID,
		Name:        title,
		URL:         link,
		Body:        body,
	}

	if err := c.doJSON(ctx, http.MethodPost, "/api/v3/post", nil, reqBody, nil, true); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// doJSON performs an API request. Authenticated requests carry the cached
// JWT; on a 401 the token is refreshed and the request replayed once.
func (c *Client) doJSON(ctx context.Context, method, path string, headers map[string]string, reqBody, respBody any, authenticated bool) error {
	err := c.doJSONOnce(ctx, method, path, headers, reqBody, respBody, authenticated)

	var apiErr *APIError
	if authenticated && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		slog.Warn("JWT expired or invalid, re-authenticating")
		if loginErr := c.Login(ctx); loginErr != nil {
			return loginErr
		}
		return c.doJSONOnce(ctx, method, path, headers, reqBody, respBody, authenticated)
	}

	return err
}

func (c *Client) doJSONOnce(ctx context.Context, method, path string, headers map[string]string, reqBody, respBody any, authenticated bool) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated && c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if respBody != nil {
		if err := json.Unmarshal(data, respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
