// Package github mirrors accepted feature requests to the code-hosting
// service as issues. It is a narrow, best-effort collaborator: failures
// are logged by the caller and never block an exchange.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	token      string
	repo       string // "owner/repo"
	baseURL    string
	httpClient *http.Client
}

func New(token, repo string) *Client {
	return &Client{
		token:      token,
		repo:       repo,
		baseURL:    "https://api.github.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether the client is configured to reach GitHub.
func (c *Client) Enabled() bool {
	return c.token != "" && c.repo != ""
}

// CreateIssue opens an issue for a feature request and returns its URL.
func (c *Client) CreateIssue(ctx context.Context, title, body string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"title":  title,
		"body":   body,
		"labels": []string{"feature-request"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create issue: unexpected status %d", resp.StatusCode)
	}

	var issue struct {
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return "", fmt.Errorf("parse issue response: %w", err)
	}
	return issue.HTMLURL, nil
}
