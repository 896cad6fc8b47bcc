package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Describer Model Prompts ---
const DescriberSystemPrompt = "You are a special education teacher who describes the pictures of children's booklets for readers with low vision. Use short, simple sentences and never mention that you are describing an image generated from a PDF."

const describerUserPromptES = `¿Puedes describir esta imagen para un niño con discapacidad visual de 5 a 10 años de edad, como una maestra de educación especial? Mantén el lenguaje sencillo y en español, y hazlo en menos de %d líneas y %d caracteres.`

const describerUserPromptEN = `Can you describe this image for a visually impaired child aged 5 to 10, as a special education teacher? Keep the language simple and in English, and do it in less than %d lines and %d characters.`

// DescriberPrompts returns the user prompt per supported language code.
func DescriberPrompts(maxLines, maxChars int) map[string]string {
	return map[string]string{
		"es": fmt.Sprintf(describerUserPromptES, maxLines, maxChars),
		"en": fmt.Sprintf(describerUserPromptEN, maxLines, maxChars),
	}
}

// VertexConfig selects the model used to describe page images.
type VertexConfig struct {
	ProjectID       string
	Region          string
	Model           string
	MaxOutputTokens int
}

// VertexClient holds the pre-configured generative models for our app.
type VertexClient struct {
	DescriberModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	describerModel := baseClient.GenerativeModel(cfg.Model)
	describerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(DescriberSystemPrompt)},
	}
	describerModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.4),
	}
	if cfg.MaxOutputTokens > 0 {
		describerModel.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(cfg.MaxOutputTokens))
	}

	return &VertexClient{
		DescriberModel: describerModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
