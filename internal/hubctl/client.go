package hubctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Record mirrors the server's record shape.
type Record struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Client talks to a RecordHub server over its HTTP API. It is not safe for
// concurrent use: login mutates the stored token.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	accessToken  string
	refreshToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError is the server's uniform error body.
type apiError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *apiError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, f := range e.Errors {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return e.Message + ": " + strings.Join(parts, "; ")
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Kind
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{}
		if err := json.Unmarshal(raw, apiErr); err != nil || (apiErr.Kind == "" && apiErr.Message == "") {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// Register creates a record through the public create endpoint. With the
// default server schema this registers a new user.
func (c *Client) Register(ctx context.Context, fields map[string]any) (*Record, error) {
	record := &Record{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/records", fields, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Login authenticates and stores the token pair on the client for
// subsequent calls.
func (c *Client) Login(ctx context.Context, credentials map[string]any) (*Record, error) {
	var resp struct {
		Token        string  `json:"token"`
		RefreshToken string  `json:"refresh_token"`
		Identity     *Record `json:"identity"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/login", credentials, &resp); err != nil {
		return nil, err
	}
	c.accessToken = resp.Token
	c.refreshToken = resp.RefreshToken
	return resp.Identity, nil
}

// Refresh trades the stored refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) error {
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/refresh", map[string]any{"refresh_token": c.refreshToken}, &resp)
	if err != nil {
		return err
	}
	c.accessToken = resp.Token
	c.refreshToken = resp.RefreshToken
	return nil
}

// Logout revokes the stored refresh token and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/logout", map[string]any{"refresh_token": c.refreshToken}, nil)
	c.accessToken = ""
	c.refreshToken = ""
	return err
}

// GetRecord fetches a record by key.
func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	record := &Record{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/records/"+id, nil, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords fetches one page of records.
func (c *Client) ListRecords(ctx context.Context, page, pageSize int) ([]*Record, int64, error) {
	var resp struct {
		Data       []*Record `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	path := fmt.Sprintf("/api/v1/records?page=%d&page_size=%d", page, pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Data, resp.Pagination.Total, nil
}
