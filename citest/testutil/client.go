package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opencode-ai/copilot/internal/server"
	"github.com/opencode-ai/copilot/pkg/types"
)

// TestClient provides HTTP client utilities for testing
type TestClient struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client
}

// NewTestClient creates a new test HTTP client. An empty userID sends no
// identity header.
func NewTestClient(baseURL, userID string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		UserID:  userID,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Response wraps HTTP response with helpers
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals response body into v
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// String returns response body as string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorCode returns the error code of an error response.
func (r *Response) ErrorCode() string {
	var e server.ErrorResponse
	if err := r.JSON(&e); err != nil {
		return ""
	}
	return e.Error.Code
}

// Get performs HTTP GET request
func (c *TestClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs HTTP POST request with JSON body
func (c *TestClient) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// do performs the actual HTTP request
func (c *TestClient) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.UserID != "" {
		req.Header.Set(server.DefaultUserHeader, c.UserID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// expectID decodes an IDResponse from a successful response.
func expectID(resp *Response, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, resp.String())
	}
	var out server.IDResponse
	if err := resp.JSON(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ---- Workspace Helpers ----

// CreateWorkspace creates a workspace owned by the client's user.
func (c *TestClient) CreateWorkspace(ctx context.Context) (string, error) {
	return expectID(c.Post(ctx, "/api/workspaces", nil))
}

// Invite invites userID and returns the invite ID.
func (c *TestClient) Invite(ctx context.Context, workspaceID, userID, level string) (string, error) {
	resp, err := c.Post(ctx, "/api/workspaces/"+workspaceID+"/invites", server.InviteRequest{UserID: userID, Level: level})
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, resp.String())
	}
	var out server.InviteResponse
	if err := resp.JSON(&out); err != nil {
		return "", err
	}
	return out.InviteID, nil
}

// AcceptInvite accepts an invite.
func (c *TestClient) AcceptInvite(ctx context.Context, workspaceID, inviteID string) error {
	resp, err := c.Post(ctx, "/api/workspaces/"+workspaceID+"/invites/"+inviteID+"/accept", nil)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("status %d: %s", resp.StatusCode, resp.String())
	}
	return nil
}

// ---- Session Helpers ----

// CreateSession creates a session and returns its ID.
func (c *TestClient) CreateSession(ctx context.Context, workspaceID, promptName string) (string, error) {
	return expectID(c.Post(ctx, "/api/copilot/sessions", server.CreateSessionRequest{
		WorkspaceID: workspaceID,
		PromptName:  promptName,
	}))
}

// CreateMessage appends a user message and returns its ID.
func (c *TestClient) CreateMessage(ctx context.Context, sessionID string, req server.CreateMessageRequest) (string, error) {
	return expectID(c.Post(ctx, "/api/copilot/sessions/"+sessionID+"/messages", req))
}

// ---- Chat Helpers ----

func chatPath(sessionID, suffix, messageID, providerID string) string {
	q := url.Values{"messageId": {messageID}}
	if providerID != "" {
		q.Set("provider", providerID)
	}
	return "/api/copilot/chat/" + sessionID + suffix + "?" + q.Encode()
}

// ChatText requests a text completion.
func (c *TestClient) ChatText(ctx context.Context, sessionID, messageID, providerID string) (*Response, error) {
	return c.Get(ctx, chatPath(sessionID, "", messageID, providerID))
}

// ChatStream requests a streamed completion and parses the frames.
func (c *TestClient) ChatStream(ctx context.Context, sessionID, messageID, providerID string) (*Response, []SSEFrame, error) {
	return c.frames(ctx, chatPath(sessionID, "/stream", messageID, providerID))
}

// ChatImages requests generated attachments and parses the frames.
func (c *TestClient) ChatImages(ctx context.Context, sessionID, messageID, providerID string) (*Response, []SSEFrame, error) {
	return c.frames(ctx, chatPath(sessionID, "/images", messageID, providerID))
}

func (c *TestClient) frames(ctx context.Context, path string) (*Response, []SSEFrame, error) {
	resp, err := c.Get(ctx, path)
	if err != nil || !resp.IsSuccess() {
		return resp, nil, err
	}
	frames, err := ParseFrames(bytes.NewReader(resp.Body))
	return resp, frames, err
}

// ---- History Helpers ----

// Histories lists the caller's histories in a workspace.
func (c *TestClient) Histories(ctx context.Context, workspaceID string) ([]types.History, error) {
	resp, err := c.Get(ctx, "/api/copilot/histories?"+url.Values{"workspaceId": {workspaceID}}.Encode())
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, resp.String())
	}
	var out []types.History
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Contents maps histories to their message contents.
func Contents(histories []types.History) [][]string {
	out := [][]string{}
	for _, h := range histories {
		contents := []string{}
		for _, m := range h.Messages {
			contents = append(contents, m.Content)
		}
		out = append(out, contents)
	}
	return out
}
