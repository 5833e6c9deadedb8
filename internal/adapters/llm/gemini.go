// Package llm adapts the Gemini API to the narrator and embedder ports.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type GeminiClient struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
}

// NewGeminiClient creates a narrator client backed by the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, modelName, embeddingModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if embeddingModel == "" {
		embeddingModel = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		modelName:      modelName,
		embeddingModel: embeddingModel,
	}, nil
}

// Generate implements domain.NarratorClient. System messages become the
// system instruction; the rest of the transcript is replayed as content,
// including earlier tool calls and their results, so the model sees the
// whole agent loop so far.
func (g *GeminiClient) Generate(ctx context.Context, msgs []*domain.Message, tools []domain.ToolSchema) (*domain.Message, error) {
	system, contents := splitTranscript(msgs)

	temp := float32(0.8)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(8192),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(tools)}}
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", domainUpstream(err))
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates: %w", domain.ErrMalformedResponse)
	}

	out := &domain.Message{Role: domain.RoleNarrator}
	for _, part := range res.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, fmt.Errorf("gemini returned neither text nor tool calls: %w", domain.ErrMalformedResponse)
	}
	return out, nil
}

// Embed implements domain.Embedder.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.client.Models.EmbedContent(ctx, g.embeddingModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", domainUpstream(err))
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned empty embedding: %w", domain.ErrMalformedResponse)
	}
	return res.Embeddings[0].Values, nil
}

func splitTranscript(msgs []*domain.Message) (string, []*genai.Content) {
	var system string
	var contents []*genai.Content

	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Text

		case domain.RoleNarrator:
			content := &genai.Content{Role: string(genai.RoleModel)}
			if m.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Args},
				})
			}
			contents = append(contents, content)

		case domain.RoleTool:
			contents = append(contents, &genai.Content{
				Role: string(genai.RoleUser),
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.ToolName,
						Response: m.ToolResult,
					},
				}},
			})

		default:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))
		}
	}
	return system, contents
}

func toFunctionDeclarations(tools []domain.ToolSchema) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Parameters))
		for name, spec := range t.Parameters {
			props[name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: spec.Description,
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.Required,
			},
		})
	}
	return out
}

func domainUpstream(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}
