// Package content generates product copy with the Gemini API
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// GenerationError is a failed generateContent call
type GenerationError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *GenerationError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("generation API error (status %d, %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("generation API error (status %d): %s", e.StatusCode, e.Message)
}

// GeminiClient calls the generateContent endpoint of a Gemini model
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	prompts    *PromptBuilder
	logger     logrus.FieldLogger
}

// GeminiOption allows configuring the client
type GeminiOption func(*GeminiClient)

// WithGeminiHTTPClient replaces the HTTP client
func WithGeminiHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

// NewGeminiClient creates a client. An access token takes precedence over an API key.
func NewGeminiClient(cfg *config.GeminiConfig, remote *config.RemoteConfig, logger logrus.FieldLogger, opts ...GeminiOption) (*GeminiClient, error) {
	if cfg.AccessToken == "" && cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini requires an API key or an access token")
	}
	if remote == nil {
		remote = config.DefaultRemoteConfig()
	}

	prompts, err := NewPromptBuilder(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}

	var httpClient *http.Client
	if cfg.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = remote.Timeout

	client := &GeminiClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		prompts:    prompts,
		logger:     logger.WithField("component", "gemini"),
	}
	if cfg.AccessToken == "" {
		client.apiKey = cfg.APIKey
	}

	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate asks the model for product content and parses its JSON answer
func (c *GeminiClient) Generate(ctx context.Context, item batch.Item, style string) (*models.GeneratedContent, error) {
	prompt, err := c.prompts.Build(item, style)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.7,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		genErr := &GenerationError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			genErr.Message = apiErr.Error.Message
			genErr.Status = apiErr.Error.Status
		}
		return nil, genErr
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if parsed.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("generation returned no candidates")
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	content, err := parseContent(text.String())
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"item_id": item.ID,
		"model":   c.model,
	}).Debug("Generated content")
	return content, nil
}

// parseContent reads the model's JSON answer, tolerating a markdown code fence around it
func parseContent(text string) (*models.GeneratedContent, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &content); err != nil {
		return nil, fmt.Errorf("failed to parse generated content: %w", err)
	}
	if content.Title == "" && content.Description == "" {
		return nil, fmt.Errorf("generated content is empty")
	}
	return &content, nil
}
