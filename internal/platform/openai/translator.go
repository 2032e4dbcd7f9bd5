// Package openai implements domain.TranslationProvider with an OpenAI chat
// completion that returns the translated title and description as JSON.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/predik/predik/internal/domain"
)

// Config holds OpenAI credentials and translation settings.
type Config struct {
	APIKey     string
	Model      string
	SourceLang string
	TargetLang string
	// BaseURL overrides the API root; empty means api.openai.com.
	BaseURL string
}

// Translator translates a title/description pair with one chat completion.
type Translator struct {
	client     *goopenai.Client
	model      string
	sourceLang string
	targetLang string
}

// NewTranslator creates a Translator.
func NewTranslator(cfg Config) *Translator {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = goopenai.GPT4oMini
	}
	return &Translator{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      model,
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
	}
}

type translationPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Translate asks the model for a JSON object with the translated fields.
func (t *Translator) Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	input, err := json.Marshal(translationPayload{Title: req.Title, Description: req.Description})
	if err != nil {
		return domain.TranslationResult{}, fmt.Errorf("openai: marshal input: %w", err)
	}

	prompt := fmt.Sprintf(
		"Translate the values of this JSON object from %s to %s. "+
			"Keep the keys, names, numbers and dates unchanged. "+
			"Respond with only the JSON object.\n%s",
		t.sourceLang, t.targetLang, input,
	)

	resp, err := t.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: t.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: "You translate prediction market copy for a Spanish-speaking audience.",
			},
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return domain.TranslationResult{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.TranslationResult{}, fmt.Errorf("openai: no translation returned")
	}

	var out translationPayload
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return domain.TranslationResult{}, fmt.Errorf("openai: decode translation: %w", err)
	}
	if out.Title == "" {
		return domain.TranslationResult{}, fmt.Errorf("openai: empty title in translation")
	}

	return domain.TranslationResult{Title: out.Title, Description: out.Description}, nil
}

// Compile-time interface check.
var _ domain.TranslationProvider = (*Translator)(nil)
