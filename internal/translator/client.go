// Package translator is the HTTP client for the external translation
// backend (LibreTranslate-compatible API surface).
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the translation backend. Thread-safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

// Translate sends a single text to the backend and returns its translation.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	request := translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: c.config.APIKey,
	}

	var response translateResponse
	if err := c.doJSON(ctx, "translate", http.MethodPost, "/translate", request, &response); err != nil {
		return "", err
	}
	if response.Error != "" {
		return "", &BackendError{Op: "translate", Message: response.Error}
	}
	return response.TranslatedText, nil
}

// DetectLanguage returns the backend's best guess for the language of text.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	request := detectRequest{
		Q:      text,
		APIKey: c.config.APIKey,
	}

	var detections []detection
	if err := c.doJSON(ctx, "detect", http.MethodPost, "/detect", request, &detections); err != nil {
		return "", err
	}
	if len(detections) == 0 || detections[0].Language == "" {
		return "", &BackendError{Op: "detect", Message: "no detection in response"}
	}
	return detections[0].Language, nil
}

// Languages lists the language pairs the backend supports.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	var languages []Language
	if err := c.doJSON(ctx, "languages", http.MethodGet, "/languages", nil, &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

// HealthCheck reports whether the backend answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// doJSON performs one JSON request/response cycle. Every failure mode comes
// back as a *BackendError so callers can treat them uniformly.
func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return &BackendError{Op: op, Message: "marshal request", Err: err}
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &BackendError{Op: op, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &BackendError{Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &BackendError{Op: op, Message: "read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &BackendError{Op: op, StatusCode: resp.StatusCode, Message: string(responseBody)}
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return &BackendError{Op: op, Message: "parse response", Err: err}
	}
	return nil
}
