package demand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const classifyPrompt = `You are a product research analyst. Below is a numbered list of app store reviews. For each review decide:
1. "feature_request" (true/false): does the reviewer explicitly ask for a missing feature or capability? Phrases like "please add", "I wish it had", "it should support" count. Generic praise or complaints do not.
2. "negative" (true/false): is the overall sentiment of the review negative (frustrated, disappointed, warning others away)?

Reviews:
%s

Respond with a JSON array, one element per review in the same order. Each element must have: "i" (the review number), "feature_request" (boolean), "negative" (boolean).
Example: [{"i":0,"feature_request":true,"negative":false}]

Return ONLY the JSON array, no other text.`

// LLMClassifier batch-classifies review text with an LLM, replacing the
// lexicon and star-rating heuristics when its labels are attached.
type LLMClassifier struct {
	client   *http.Client
	provider string // "openai" or "anthropic"
	model    string
	apiKey   string
	baseURL  string
}

// NewLLMClassifier creates a new LLM review classifier.
func NewLLMClassifier(provider, model, apiKey, baseURL string) *LLMClassifier {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &LLMClassifier{
		client:   &http.Client{Timeout: 60 * time.Second},
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
	}
}

// ClassifyReviews sends all reviews in one batch to the LLM and returns a
// label per review, index-aligned with the input. Reviews the LLM skipped
// get a nil label so the caller falls back to the lexicon.
func (c *LLMClassifier) ClassifyReviews(ctx context.Context, reviews []Review) ([]*ReviewLabel, error) {
	if len(reviews) == 0 {
		return nil, nil
	}

	var lines []string
	for i, r := range reviews {
		text := r.Text
		if len(text) > 300 {
			text = text[:300] + "..."
		}
		lines = append(lines, fmt.Sprintf("%d. [%.0f stars] %s", i, r.Rating, text))
	}

	prompt := fmt.Sprintf(classifyPrompt, strings.Join(lines, "\n"))

	var raw string
	var err error
	switch c.provider {
	case "anthropic":
		raw, err = c.callAnthropic(ctx, prompt)
	default:
		raw, err = c.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	raw = strings.TrimSpace(raw)
	// Handle markdown code block wrapping.
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
			raw = raw[3+idx+1:]
		}
		if strings.HasSuffix(raw, "```") {
			raw = raw[:len(raw)-3]
		}
		raw = strings.TrimSpace(raw)
	}

	var results []struct {
		I              int  `json:"i"`
		FeatureRequest bool `json:"feature_request"`
		Negative       bool `json:"negative"`
	}
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, fmt.Errorf("parse llm response: %w\nraw: %s", err, truncateStr(raw, 500))
	}

	labels := make([]*ReviewLabel, len(reviews))
	for _, r := range results {
		if r.I < 0 || r.I >= len(reviews) {
			continue
		}
		labels[r.I] = &ReviewLabel{FeatureRequest: r.FeatureRequest, Negative: r.Negative}
	}
	return labels, nil
}

func (c *LLMClassifier) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClassifier) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      c.model,
		"max_tokens": 4096,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
