// Package sentiment classifies news, review and social text with an OpenAI
// chat model. Any failure surfaces as an error so ingestion can fall back
// to the lexicon classifier.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/textutil"
	openai "github.com/sashabaranov/go-openai"
)

const maxTextLen = 400

const systemPrompt = `You label the tone of short texts about a startup idea or its market.
Answer with a JSON array of strings, one label per input text, in input order.
Each label is exactly one of "positive", "neutral" or "negative".`

// ErrLabelCount is returned when the model answers with the wrong number of labels.
var ErrLabelCount = errors.New("sentiment: label count mismatch")

// Classifier implements hub.ToneClassifier.
type Classifier struct {
	client    *openai.Client
	model     string
	batchSize int
}

func New(cfg config.SentimentConfig) *Classifier {
	cfg = cfg.Normalize()
	oc := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Classifier{client: openai.NewClientWithConfig(oc), model: cfg.Model, batchSize: cfg.BatchSize}
}

// Classify labels texts in batches; one failed batch fails the call.
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]hub.Tone, error) {
	out := make([]hub.Tone, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		tones, err := c.classifyBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, tones...)
	}
	return out, nil
}

func (c *Classifier) classifyBatch(ctx context.Context, texts []string) ([]hub.Tone, error) {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(textutil.Truncate(t, maxTextLen), "\n", " "))
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Label these %d texts:\n%s", len(texts), b.String())},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sentiment completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("sentiment completion: no choices returned")
	}
	raw, err := textutil.ExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("sentiment completion: %w", err)
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("decode sentiment labels: %w", err)
	}
	if len(labels) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrLabelCount, len(labels), len(texts))
	}
	tones := make([]hub.Tone, len(labels))
	for i, l := range labels {
		switch hub.Tone(strings.ToLower(strings.TrimSpace(l))) {
		case hub.TonePositive:
			tones[i] = hub.TonePositive
		case hub.ToneNegative:
			tones[i] = hub.ToneNegative
		default:
			tones[i] = hub.ToneNeutral
		}
	}
	return tones, nil
}
