package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// MailClient represents the shopmail API client.
type MailClient struct {
	BaseURL string
	Token   string
	Tenant  string
	HTTP    *http.Client
}

type SendRequest struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type SMTPAuth struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

type SMTPConfig struct {
	Host string   `json:"host"`
	Port int      `json:"port,omitempty"`
	Auth SMTPAuth `json:"auth"`
	From string   `json:"from,omitempty"`
}

type SendResponse struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
	Degraded     bool   `json:"degraded"`
	Error        string `json:"error,omitempty"`
}

type DiagnosticResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
}

type StatusResponse struct {
	Cached    bool       `json:"cached"`
	Source    string     `json:"source,omitempty"`
	Host      string     `json:"host,omitempty"`
	Port      int        `json:"port,omitempty"`
	Username  string     `json:"username,omitempty"`
	Degraded  bool       `json:"degraded"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (c *MailClient) tenantPath(suffix string) string {
	return "/v1/tenants/" + url.PathEscape(c.Tenant) + "/mail" + suffix
}

func (c *MailClient) makeRequest(method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	target := c.BaseURL + path
	logVerbose("Making %s request to %s", method, target)

	req, err := http.NewRequest(method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	logVerbose("Response status: %s", resp.Status)
	return resp, nil
}

// handleResponse decodes into target even on 502, because send and diagnostic
// endpoints report delivery failures in their regular body.
func (c *MailClient) handleResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusBadGateway && target != nil {
		if err := json.Unmarshal(body, target); err == nil {
			return nil
		}
	}
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	if target != nil && len(body) > 0 {
		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *MailClient) Send(req SendRequest) (*SendResponse, error) {
	resp, err := c.makeRequest(http.MethodPost, c.tenantPath("/send"), req)
	if err != nil {
		return nil, err
	}
	var out SendResponse
	if err := c.handleResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MailClient) TestConnection(cfg *SMTPConfig) (*DiagnosticResponse, error) {
	resp, err := c.makeRequest(http.MethodPost, c.tenantPath("/test-connection"), map[string]any{"config": cfg})
	if err != nil {
		return nil, err
	}
	var out DiagnosticResponse
	if err := c.handleResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MailClient) TestEmail(to string, cfg *SMTPConfig) (*DiagnosticResponse, error) {
	resp, err := c.makeRequest(http.MethodPost, c.tenantPath("/test-email"), map[string]any{"to": to, "config": cfg})
	if err != nil {
		return nil, err
	}
	var out DiagnosticResponse
	if err := c.handleResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MailClient) Status() (*StatusResponse, error) {
	resp, err := c.makeRequest(http.MethodGet, c.tenantPath("/status"), nil)
	if err != nil {
		return nil, err
	}
	var out StatusResponse
	if err := c.handleResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MailClient) ClearTenant() error {
	resp, err := c.makeRequest(http.MethodDelete, c.tenantPath("/cache"), nil)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

func (c *MailClient) ClearAll() error {
	resp, err := c.makeRequest(http.MethodDelete, "/v1/mail/cache", nil)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
