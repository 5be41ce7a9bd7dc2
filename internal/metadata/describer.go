// Package metadata generates natural-language descriptions of extracted
// code entities with a chat model.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
)

// SentinelDescription stands in for a description that could not be generated.
const SentinelDescription = "No description available"

// DefaultMaxTokens is the maximum code length before truncation (in tokens).
const DefaultMaxTokens = 4000

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoDescription is reported when the model returns no usable text.
var ErrNoDescription = errors.New("model returned no description")

const promptTemplate = `Describe the purpose of the following Python code in at least two sentences.
Explain what it does and what it returns or produces. Answer in plain prose.

%s`

// Description is the outcome of describing one entity: either generated
// text, or the sentinel together with the reason generation failed.
type Description struct {
	Text      string
	Available bool
	Err       error
}

// Unavailable returns the sentinel description for a failed generation.
func Unavailable(err error) Description {
	return Description{Text: SentinelDescription, Err: err}
}

// Describer produces short summaries of code. Each entity gets exactly one
// chat completion attempt.
type Describer struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewDescriber creates a describer with the given OpenAI client.
// Empty model selects DefaultModel; a nil logger means slog.Default().
func NewDescriber(client *openai.Client, model string, logger *slog.Logger) *Describer {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Describer{
		client:    client,
		model:     model,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}
}

// Describe summarises code. It never fails: any provider error or empty
// answer yields Unavailable.
func (d *Describer) Describe(ctx context.Context, code string) Description {
	prompt := fmt.Sprintf(promptTemplate, d.truncateContent(code))

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(d.model),
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return Unavailable(fmt.Errorf("chat completion failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return Unavailable(ErrNoDescription)
	}

	text := plainText(resp.Choices[0].Message.Content)
	if text == "" {
		return Unavailable(ErrNoDescription)
	}

	return Description{Text: text, Available: true}
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (d *Describer) truncateContent(content string) string {
	maxChars := d.maxTokens * 4

	if len(content) <= maxChars {
		return content
	}

	d.logger.Warn("Truncating code for description",
		"from_chars", len(content), "to_chars", maxChars, "max_tokens", d.maxTokens)

	return strings.ToValidUTF8(content[:maxChars], "")
}
