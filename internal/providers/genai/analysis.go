package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"studio/internal/domain"
)

const analysisSchema = `{
  "type": "object",
  "required": ["title", "tags", "description", "style", "suggestedScenes"],
  "properties": {
    "title": {"type": "string", "minLength": 1, "maxLength": 140},
    "tags": {"type": "array", "items": {"type": "string"}},
    "description": {"type": "string", "minLength": 1},
    "style": {"type": "string"},
    "suggestedScenes": {"type": "array", "items": {"type": "string"}},
    "seoReasoning": {"type": "string"},
    "thumbnailHeadline": {"type": "string"},
    "thumbnailBadge": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func analysisValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis.json", strings.NewReader(analysisSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("analysis.json")
	})
	return compiledSchema, schemaErr
}

// AnalyzeProduct asks the text model for listing metadata covering every
// supplied photo. The reply must be a JSON object matching the analysis schema.
func (c *Client) AnalyzeProduct(ctx context.Context, images []InlineImage, keywords string) (domain.Analysis, error) {
	if len(images) == 0 {
		return domain.Analysis{}, &domain.ProviderError{Kind: domain.ProviderInvalidInput, Message: "at least one image is required"}
	}

	parts := make([]geminiPart, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, inlinePart(img))
	}
	parts = append(parts, geminiPart{Text: analysisPrompt(len(images), keywords)})

	resp, err := c.generateContent(ctx, c.textModel, geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return domain.Analysis{}, err
	}

	text := strings.TrimSpace(collectText(resp))
	if text == "" {
		return domain.Analysis{}, &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "analysis response had no text"}
	}
	analysis, err := parseAnalysis(text)
	if err != nil {
		c.logger.Warn().Err(err).Int("response_len", len(text)).Msg("genai: invalid analysis response")
		return domain.Analysis{}, &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "failed to generate valid JSON analysis", Err: err}
	}
	return analysis, nil
}

func parseAnalysis(text string) (domain.Analysis, error) {
	cleaned := stripFences(text)

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	schema, err := analysisValidator()
	if err != nil {
		return domain.Analysis{}, err
	}
	if err := schema.Validate(raw); err != nil {
		return domain.Analysis{}, fmt.Errorf("validate analysis: %w", err)
	}

	var analysis domain.Analysis
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(&analysis); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	analysis.Title = strings.TrimSpace(analysis.Title)
	analysis.Tags = compact(analysis.Tags)
	analysis.SuggestedScenes = compact(analysis.SuggestedScenes)
	return analysis, nil
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func collectText(resp *geminiGenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func analysisPrompt(imageCount int, keywords string) string {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		keywords = "None provided"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these product images to create high-quality Etsy listing metadata and creative assets.\n")
	fmt.Fprintf(&b, "There are %d images of the same product. Use all of them to understand details, angles and features.\n", imageCount)
	fmt.Fprintf(&b, "Seller keywords (must be used): %s\n\n", keywords)
	b.WriteString(`Return a JSON object with these keys:
- "title": an Etsy title of at most 125 characters. Natural phrasing, no repeated words, seller keywords near the start.
- "tags": 13 tags of at most 20 characters each mixing seller keywords with high-traffic suggestions.
- "description": a listing description in short paragraphs with bullet points and sections for About this Item, Materials, Dimensions/Size and Care Instructions.
- "style": the aesthetic style of the product.
- "suggestedScenes": 5 photography settings suitable for mockups of this product.
- "seoReasoning": a short note on how the keywords were combined.
- "thumbnailHeadline": a short catchy headline for the listing thumbnail.
- "thumbnailBadge": a short badge text such as "Instant Download".
Return only the JSON.`)
	return b.String()
}
