package briefing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/marais/streetrisk/internal/risk"
)

// Generator turns a risk assessment into a short plain-language safety
// briefing using OpenAI's API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a new briefing generator.
// It reads the OPENAI_API_KEY environment variable for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini, // Cost-effective for short text
	}, nil
}

const systemPrompt = "You write short, calm safety briefings for people " +
	"checking an area before visiting. Two or three sentences, practical " +
	"advice only, no alarmism, no disclaimers."

// Generate produces a briefing for the given assessment.
func (g *Generator) Generate(ctx context.Context, a risk.Assessment) (string, error) {
	log.Printf("briefing: generating for cell %s (%s)", a.Cell, a.RiskLevel)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(a)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("briefing generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}
	return text, nil
}

// BuildPrompt flattens an assessment into the prompt the model sees.
func BuildPrompt(a risk.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Area risk level: %s.\n", a.RiskLevel)
	if a.Explanation != "" {
		fmt.Fprintf(&b, "Signals: %s.\n", a.Explanation)
	}
	if a.Environment.POICount > 0 {
		fmt.Fprintf(&b, "Nearby late-night venues and cash points: %d.\n", a.Environment.POICount)
	}
	if n := len(a.Context.Articles); n > 0 {
		fmt.Fprintf(&b, "Recent local crime reports (%d):\n", n)
		for _, art := range a.Context.Articles {
			fmt.Fprintf(&b, "- %s\n", art.Title)
		}
	}
	b.WriteString("Write the briefing.")
	return b.String()
}
