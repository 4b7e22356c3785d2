package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AnTengye/brdlayout/config"
	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

// LayoutDelimiter separates proposals in the completion response.
const LayoutDelimiter = "---"

// LayoutSystemPrompt asks for three Power BI layout proposals in a fixed shape.
const LayoutSystemPrompt = "You are a Power BI expert. Based on the provided BRD (business requirement document), generate 3 unique layout plans for Reports. " +
	"Each layout must include:\n" +
	"- Summary of business goals\n" +
	"- Exactly 5 to 6 visuals using ONLY: KPI card, Table, Pie Chart, Line Chart, Area Chart, Cluster Bar Chart, Area Line Chart, or any advanced chart relevant to the requirement.\n" +
	"- A prompt for DALL·E that must generate a FULL Power BI Reports screen/image with only the specified visuals.\n" +
	"- All visual titles should be shown in 'Times New Roman' font in the image and use fresh and professional colour combinations.\n" +
	"- The Reports must be clean, well-aligned, and modern.\n" +
	"Do NOT include human body parts (for example hands), maps, or waterfall visuals unless absolutely required, and do not include any images other than visuals.\n" +
	"Use this format for each layout:\n" +
	"1. Objective:\n2. Visuals Used:\n3. Justification:\n4. Prompt:\n\n" +
	"Separate each layout using '" + LayoutDelimiter + "'."

var errNoChoices = errors.New("completion returned no choices")

// LayoutGenerator asks the completion model for dashboard layout proposals.
type LayoutGenerator struct {
	client      ChatCompleter
	model       string
	temperature float32
}

func NewLayoutGenerator(client ChatCompleter, cfg *config.OpenAIConfig) *LayoutGenerator {
	return &LayoutGenerator{
		client:      client,
		model:       cfg.ChatModel,
		temperature: cfg.Temperature,
	}
}

// Generate sends the document text in one request and returns the proposals in the
// order the model wrote them. Any failure comes back as a single "Error: ..." segment.
func (g *LayoutGenerator) Generate(ctx context.Context, text string) []string {
	content, err := g.complete(ctx, text)
	if err != nil {
		logger.Warn(ctx, "layout generation failed", "model", g.model, "error", err)
		return []string{fmt.Sprintf("Error: %v", err)}
	}

	segments := SplitLayouts(content)
	logger.Info(ctx, "layouts generated", "model", g.model, "segments", len(segments))
	return segments
}

func (g *LayoutGenerator) complete(ctx context.Context, text string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: LayoutSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Requirement document:\n" + text},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// SplitLayouts cuts a raw completion into trimmed proposal segments.
// The number of segments is whatever the response contains.
func SplitLayouts(raw string) []string {
	parts := strings.Split(strings.TrimSpace(raw), LayoutDelimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
