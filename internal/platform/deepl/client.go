// Package deepl implements domain.TranslationProvider on the DeepL REST API.
package deepl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/predik/predik/internal/domain"
)

// Config holds DeepL credentials and language settings.
type Config struct {
	BaseURL    string
	APIKey     string
	SourceLang string
	TargetLang string
	Timeout    time.Duration
}

// Client translates a title/description pair with one /v2/translate call.
type Client struct {
	baseURL    string
	apiKey     string
	sourceLang string
	targetLang string
	httpClient *http.Client
}

// NewClient creates a DeepL client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		sourceLang: strings.ToUpper(cfg.SourceLang),
		targetLang: strings.ToUpper(cfg.TargetLang),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate sends the title and, when present, the description in a single
// request. An empty description yields an empty translated description.
func (c *Client) Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	texts := []string{req.Title}
	if req.Description != "" {
		texts = append(texts, req.Description)
	}

	payload, err := json.Marshal(translateRequest{
		Text:       texts,
		SourceLang: c.sourceLang,
		TargetLang: c.targetLang,
	})
	if err != nil {
		return domain.TranslationResult{}, fmt.Errorf("deepl: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/translate", bytes.NewReader(payload))
	if err != nil {
		return domain.TranslationResult{}, fmt.Errorf("deepl: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.TranslationResult{}, fmt.Errorf("deepl: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TranslationResult{}, fmt.Errorf("deepl: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.TranslationResult{}, fmt.Errorf("deepl: %w: %s", domain.ErrRateLimited, body)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return domain.TranslationResult{}, fmt.Errorf("deepl: %w: %s", domain.ErrUnauthorized, body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// 456 is DeepL's quota exceeded status.
		return domain.TranslationResult{}, fmt.Errorf("deepl: HTTP %d: %s", resp.StatusCode, body)
	}

	var out translateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.TranslationResult{}, fmt.Errorf("deepl: decode response: %w", err)
	}
	if len(out.Translations) != len(texts) {
		return domain.TranslationResult{}, fmt.Errorf("deepl: expected %d translations, got %d", len(texts), len(out.Translations))
	}

	result := domain.TranslationResult{Title: out.Translations[0].Text}
	if len(texts) > 1 {
		result.Description = out.Translations[1].Text
	}
	return result, nil
}

// Compile-time interface check.
var _ domain.TranslationProvider = (*Client)(nil)
