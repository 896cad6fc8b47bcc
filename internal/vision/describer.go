// Package vision produces short, child-appropriate descriptions of page images.
package vision

import (
	"context"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"github.com/Lllllllleong/bookletflow/internal/models"
)

// generator is satisfied by *genai.GenerativeModel.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Config bounds the length of the produced descriptions.
type Config struct {
	MaxLines int
	MaxChars int
}

// Describer calls a vision-language model. It keeps no state between calls.
type Describer struct {
	model   generator
	prompts map[string]string
}

// NewDescriber builds a describer on top of the pre-configured Vertex model.
func NewDescriber(vc *gcp.VertexClient, cfg Config) *Describer {
	return newDescriber(vc.DescriberModel, cfg)
}

func newDescriber(model generator, cfg Config) *Describer {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 3
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 250
	}
	return &Describer{model: model, prompts: gcp.DescriberPrompts(cfg.MaxLines, cfg.MaxChars)}
}

// Supports reports whether lang has a prompt.
func (d *Describer) Supports(lang string) bool {
	_, ok := d.prompts[lang]
	return ok
}

// Image is a rendered PNG page. A gs:// URI is handed to the model as a file
// reference, anything else is sent inline from Data.
type Image struct {
	URI  string
	Data []byte
}

func (img Image) part() genai.Part {
	if strings.HasPrefix(img.URI, "gs://") {
		return genai.FileData{MIMEType: "image/png", FileURI: img.URI}
	}
	return genai.ImageData("png", img.Data)
}

// Describe returns the description and true when one was produced. An
// unsupported language returns ("", false, nil) without calling the model;
// model failures are returned as DescriptionError.
func (d *Describer) Describe(ctx context.Context, image Image, lang string) (string, bool, error) {
	prompt, ok := d.prompts[lang]
	if !ok {
		return "", false, nil
	}

	resp, err := d.model.GenerateContent(ctx, image.part(), genai.Text(prompt))
	if err != nil {
		return "", false, models.DescriptionError("failed to generate content from gemini", err)
	}

	description := extractText(resp)

	// Sanity check for LLM refusal.
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot describe",
		"i cannot provide",
		"as a large language model",
		"no puedo describir",
		"como modelo de lenguaje",
	}
	lower := strings.ToLower(description)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", false, models.DescriptionError("gemini response indicates refusal", nil)
		}
	}

	if description == "" {
		slog.Warn("No description extracted from response. Treating as a page without description.", "imageUri", image.URI, "bytes", len(image.Data))
		return "", false, nil
	}
	return description, true, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
