package groupme

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.groupme.com/v3"
	groupsPerPage  = 50
	tokenHeader    = "X-Access-Token"
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// Client is a GroupMe API client. It remembers the newest message seen in each
// group so FetchUnread only counts messages that arrived since the last call.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPClient

	mu       sync.Mutex
	lastSeen map[string]string
}

// NewClient creates a new GroupMe client with the given access token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		lastSeen:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchGroups retrieves the user's groups.
func (c *Client) FetchGroups(ctx context.Context) ([]Group, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(groupsPerPage))

	body, status, err := c.doRequest(ctx, "/groups", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, handleAPIError(status)
	}

	var resp groupsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse groups response: %w", err)
	}

	groups := make([]Group, 0, len(resp.Response))
	for _, g := range resp.Response {
		group := Group{
			ID:            g.ID,
			Name:          g.Name,
			ImageURL:      g.ImageURL,
			MessageCount:  g.Messages.Count,
			LastMessageID: g.Messages.LastMessageID,
			PreviewSender: g.Messages.Preview.Nickname,
			PreviewText:   g.Messages.Preview.Text,
		}
		if g.Messages.LastMessageCreatedAt > 0 {
			group.LastMessageAt = time.Unix(g.Messages.LastMessageCreatedAt, 0)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// FetchUnread returns up to limit messages posted in groupID since the previous
// call for that group. The first call treats the latest limit messages as unread.
func (c *Client) FetchUnread(ctx context.Context, groupID string, limit int) ([]Message, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	c.mu.Lock()
	sinceID, tracked := c.lastSeen[groupID]
	c.mu.Unlock()
	if tracked {
		params.Set("since_id", sinceID)
	}

	body, status, err := c.doRequest(ctx, "/groups/"+url.PathEscape(groupID)+"/messages", params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotModified {
		return []Message{}, nil
	}
	if status != http.StatusOK {
		return nil, handleAPIError(status)
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse messages response: %w", err)
	}

	messages := make([]Message, 0, len(resp.Response.Messages))
	for _, m := range resp.Response.Messages {
		messages = append(messages, Message{
			ID:        m.ID,
			Sender:    m.Name,
			Text:      m.Text,
			CreatedAt: time.Unix(m.CreatedAt, 0),
		})
	}

	if len(messages) > 0 {
		c.mu.Lock()
		c.lastSeen[groupID] = messages[0].ID
		c.mu.Unlock()
	}
	return messages, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// API response types (private - implementation detail)

type groupsResponse struct {
	Response []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		ImageURL string `json:"image_url"`
		Messages struct {
			Count                int    `json:"count"`
			LastMessageID        string `json:"last_message_id"`
			LastMessageCreatedAt int64  `json:"last_message_created_at"`
			Preview              struct {
				Nickname string `json:"nickname"`
				Text     string `json:"text"`
			} `json:"preview"`
		} `json:"messages"`
	} `json:"response"`
}

type messagesResponse struct {
	Response struct {
		Count    int `json:"count"`
		Messages []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Text      string `json:"text"`
			CreatedAt int64  `json:"created_at"`
		} `json:"messages"`
	} `json:"response"`
}

func handleAPIError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("GroupMe authentication failed - check GROUPME_ACCESS_TOKEN")
	case http.StatusNotFound:
		return fmt.Errorf("GroupMe group not found - it may have been deleted or you left it")
	case http.StatusTooManyRequests:
		return fmt.Errorf("GroupMe rate limit exceeded - please try again later")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("GroupMe server error - please try again later")
	default:
		return fmt.Errorf("GroupMe API error (status %d) - please try again", statusCode)
	}
}
