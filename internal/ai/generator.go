package ai

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/mindtide/mindtide/internal/services"
)

const defaultModel = "gemini-1.5-flash"

// Generator produces coaching messages with a Gemini model. It is the
// second stage of the composer cascade, after the orchestrator and before
// the static fallback.
type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	log.Printf("ai: generator ready (model %s)", model)
	return &Generator{client: client, model: model}, nil
}

// Generate renders the prompt for the selected template and asks the model
// for a JSON message. Responses that fail to parse or validate are
// rejected so the composer can fall back.
func (g *Generator) Generate(ctx context.Context, template services.InterventionTemplate, ic services.InterventionContext) (*services.GeneratedMessage, error) {
	prompt := services.BuildPrompt(template, ic)

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}

	msg, ok := services.ParseMessageJSON(text)
	if !ok {
		return nil, fmt.Errorf("model response failed message validation")
	}
	return &services.GeneratedMessage{
		Title:        msg.Title,
		Body:         msg.Body,
		CTAText:      msg.CTAText,
		TemplateType: template,
	}, nil
}

var _ services.MessageGenerator = (*Generator)(nil)
