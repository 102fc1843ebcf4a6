// Package nlrule calls an external service that turns a plain-language
// audience description into segment rules.
package nlrule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"campaignhub/internal/models"
)

// ErrInvalidRules is returned when the service answers with rules that do not validate
var ErrInvalidRules = errors.New("rule service returned invalid rules")

type suggestRequest struct {
	Prompt string `json:"prompt"`
}

type suggestResponse struct {
	Rules models.RuleSet `json:"rules"`
	Error string         `json:"error,omitempty"`
}

// Client POSTs prompts to the rule service
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a client for the given endpoint URL
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// SuggestRules sends the prompt and returns the validated rule set
func (c *Client) SuggestRules(ctx context.Context, prompt string) (models.RuleSet, error) {
	body, err := json.Marshal(suggestRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encode rule request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rule request: %w", err)
	}
	defer resp.Body.Close()

	var result suggestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("rule service returned %s", resp.Status)
		}
		return nil, fmt.Errorf("decode rule response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return nil, fmt.Errorf("rule service returned %s: %s", resp.Status, result.Error)
		}
		return nil, fmt.Errorf("rule service returned %s", resp.Status)
	}

	if err := result.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	return result.Rules, nil
}
