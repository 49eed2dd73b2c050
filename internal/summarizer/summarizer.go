// Package summarizer is the opaque summarization collaborator. The
// pipeline only decides when to invoke it and what metadata to attach;
// everything about how text becomes a summary lives behind the interface.
package summarizer

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Summarizer produces a short plain-text summary for a document.
type Summarizer interface {
	Summarize(ctx context.Context, kind, id, text string) (string, error)
}

// Disabled is a no-op summarizer used when summarization is turned off.
type Disabled struct{}

// Summarize returns an empty summary.
func (Disabled) Summarize(ctx context.Context, kind, id, text string) (string, error) {
	return "", nil
}

// Anthropic implements Summarizer using Claude.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic-backed summarizer.
func NewAnthropic(apiKey, model string) *Anthropic {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &Anthropic{
		client: &client,
		model:  model,
	}
}

// Documents can be large; send only what fits comfortably in one request.
const maxInputRunes = 40000

// Summarize sends the document text to Claude with its civic context.
func (a *Anthropic) Summarize(ctx context.Context, kind, id, text string) (string, error) {
	prompt := buildPrompt(kind, id, truncate(text, maxInputRunes))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("summarizer returned empty response")
}

func buildPrompt(kind, id, text string) string {
	return fmt.Sprintf(`You are summarizing a municipal public record for residents.

Record type: %s
Record id: %s

Write a 2-4 sentence plain-language summary of what this record covers and any
figures or decisions a resident would care about. Do not editorialize.

--- DOCUMENT TEXT ---
%s`, kind, id, text)
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
