// Package advisor is the second layer of intent resolution: an
// advisory language-model opinion on what the user meant. Its output
// is untrusted by contract. Any failure at any point, from transport
// to schema, produces no suggestion rather than a degraded one, and
// the pipeline must behave identically either way.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/odvcencio/focusboard/pkg/config"
	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/logging"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	enabled     bool
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	budget      int

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
	transcript *logging.TranscriptLogger
}

// New builds a suggestion client from configuration. A client without
// an API key (or with the advisor disabled) is valid and simply never
// suggests.
func New(cfg config.AdvisorConfig, logger *logging.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = config.DefaultAdvisorRPM
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = config.DefaultAdvisorBurst
	}

	return &Client{
		enabled:     cfg.Enabled && cfg.APIKey != "",
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		budget:      cfg.PromptTokenBudget,
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		logger:      logger,
	}
}

// Enabled reports whether the client will attempt suggestions at all.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// SetTranscript attaches a transcript log that receives every prompt
// and raw completion, including ones that fail schema validation.
func (c *Client) SetTranscript(t *logging.TranscriptLogger) {
	c.transcript = t
}

// Suggest asks the model to classify text. It returns nil whenever a
// trustworthy suggestion cannot be produced: client disabled, rate
// limit reached, transport or HTTP failure, or a response that strays
// from the schema in any way. Callers never need to distinguish why.
func (c *Client) Suggest(ctx context.Context, text string) *intent.Candidate {
	if !c.Enabled() {
		return nil
	}
	if !c.limiter.Allow() {
		c.logger.Debug(logging.CategoryAdvisor, "rate_limited", "suggestion skipped, rate limit reached", nil)
		return nil
	}

	started := time.Now()
	prompt := trimToBudget(text, c.budget)
	candidate, err := c.suggest(ctx, prompt)
	latency := time.Since(started).Milliseconds()

	if err != nil {
		c.logger.Warn(logging.CategoryAdvisor, "suggest_failed", "no suggestion used", map[string]any{
			"error":      err.Error(),
			"latency_ms": latency,
		})
		return nil
	}

	// Token counting loads the encoder, so skip it with no one listening.
	if c.logger != nil {
		c.logger.Debug(logging.CategoryAdvisor, "suggested", "model suggestion received", map[string]any{
			"intent":        string(candidate.Kind),
			"confidence":    candidate.Confidence,
			"latency_ms":    latency,
			"prompt_tokens": countTokens(prompt),
		})
	}
	return candidate
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) suggest(ctx context.Context, prompt string) (*intent.Candidate, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion request failed: %s", resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("response carried no choices")
	}

	content := chatResp.Choices[0].Message.Content
	if c.transcript != nil {
		if err := c.transcript.WriteExchange(c.model, prompt, content); err != nil {
			c.logger.Debug(logging.CategoryAdvisor, "transcript_write_failed", "exchange not recorded", map[string]any{
				"error": err.Error(),
			})
		}
	}

	return parseSuggestion(content)
}

// Wire shape of the model's answer. Confidence is a pointer so a
// missing value is distinguishable from 0.0; both are rejected paths
// but the error should say which.
type suggestion struct {
	Intent     string            `json:"intent"`
	Confidence *float64          `json:"confidence"`
	Fields     *suggestionFields `json:"extracted_fields"`
	Reason     string            `json:"reason"`
}

type suggestionFields struct {
	Title  string   `json:"title"`
	Days   []string `json:"days"`
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Date   string   `json:"date"`
	Action string   `json:"action"`
}

var wireKinds = map[string]intent.Kind{
	"task":          intent.KindTask,
	"class":         intent.KindClass,
	"query":         intent.KindQuery,
	"chat":          intent.KindChat,
	"schedule_file": intent.KindScheduleImport,
}

// parseSuggestion validates the model output strictly. The model is
// advisory: a response that does not match the announced schema
// exactly is discarded, never patched up.
func parseSuggestion(content string) (*intent.Candidate, error) {
	var s suggestion
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("malformed suggestion payload: %w", err)
	}

	kind, ok := wireKinds[s.Intent]
	if !ok {
		return nil, fmt.Errorf("unknown intent %q", s.Intent)
	}
	if s.Confidence == nil {
		return nil, fmt.Errorf("missing confidence")
	}
	if *s.Confidence < 0 || *s.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", *s.Confidence)
	}

	fields := intent.Fields{}
	if s.Fields != nil {
		fields.Title = s.Fields.Title
		fields.Deadline = s.Fields.Date
		fields.Action = s.Fields.Action
		// Day and time values are canonicalized here so nothing
		// downstream ever sees a raw model spelling.
		fields.Days = detector.NormalizeDays(s.Fields.Days)
		if s.Fields.Start != "" {
			fields.StartTime = detector.NormalizeTime(s.Fields.Start)
		}
		if s.Fields.End != "" {
			fields.EndTime = detector.NormalizeTime(s.Fields.End)
		}
	}

	return &intent.Candidate{
		Kind:       kind,
		Confidence: *s.Confidence,
		Source:     intent.SourceAdvisory,
		Fields:     fields,
	}, nil
}
