package translator

import (
	"fmt"
	"strings"
)

// Config holds the translation backend connection settings.
type Config struct {
	APIURL  string `json:"api_url"`
	APIKey  string `json:"api_key"` // opaque credential, forwarded as-is
	Timeout int    `json:"timeout"` // per-request timeout in seconds
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("backend api url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	return nil
}

// Language is one language pair supported by the backend.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// BackendError is any non-success response, network failure, or timeout from
// the translation backend. The orchestrator treats all of them identically as
// retryable.
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s failed: %s", e.Op, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

type detectRequest struct {
	Q      string `json:"q"`
	APIKey string `json:"api_key,omitempty"`
}

type detection struct {
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}
