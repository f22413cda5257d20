package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicExtractor implements Extractor with the Anthropic Messages
// API. The API key comes from the environment (ANTHROPIC_API_KEY).
type AnthropicExtractor struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicExtractor creates the extractor.
func NewAnthropicExtractor(model string, maxTokens int) *AnthropicExtractor {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	client := anthropic.NewClient()
	return &AnthropicExtractor{
		client:    &client,
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

const extractionPrompt = `Analyze this session log and extract key information worth remembering.

%s

Extract:
1. Important facts the user mentioned
2. Preferences or decisions made
3. Recurring topics or themes
4. People, places, or things mentioned

Return ONLY a JSON array of insights with this exact format:
[{"title": "short title", "content": "detailed content", "type": "fact|preference|topic|entity"}]

If no insights are found, return an empty array: []

Do not include any other text or explanation.`

// Extract runs the extraction prompt and parses the JSON array reply.
func (e *AnthropicExtractor) Extract(ctx context.Context, transcript string) ([]Item, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(extractionPrompt, transcript))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return parseItems(text.String())
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// parseItems tolerates markdown fences and surrounding prose around the
// JSON array.
func parseItems(text string) ([]Item, error) {
	text = strings.TrimSpace(text)

	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	} else if !strings.HasPrefix(text, "[") {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in extraction reply")
		}
		text = text[start : end+1]
	}

	var items []Item
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("parse extraction reply: %w", err)
	}
	return items, nil
}
