package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"studio/internal/domain"
)

const imageSize = "4K"

// GenerateSceneImage places the product from ref into the described scene.
func (c *Client) GenerateSceneImage(ctx context.Context, ref InlineImage, scene string, ratio domain.AspectRatio) (InlineImage, error) {
	prompt := fmt.Sprintf("Create a 4K resolution, photorealistic product mockup. Place the product from the image into this scene: %s. "+
		"Maintain the product's original appearance perfectly. Lighting, shadows and reflections must be professional studio quality.", strings.TrimSpace(scene))
	return c.generateImage(ctx, []InlineImage{ref}, prompt, string(ratio))
}

// GenerateThumbnail renders a square listing thumbnail showing every reference photo.
func (c *Client) GenerateThumbnail(ctx context.Context, refs []InlineImage, cfg domain.ThumbnailConfig) (InlineImage, error) {
	if len(refs) == 0 {
		return InlineImage{}, &domain.ProviderError{Kind: domain.ProviderInvalidInput, Message: "at least one image is required"}
	}
	return c.generateImage(ctx, refs, thumbnailPrompt(len(refs), cfg), string(domain.AspectSquare))
}

func (c *Client) generateImage(ctx context.Context, refs []InlineImage, prompt, ratio string) (InlineImage, error) {
	parts := make([]geminiPart, 0, len(refs)+1)
	for _, ref := range refs {
		parts = append(parts, inlinePart(ref))
	}
	parts = append(parts, geminiPart{Text: prompt})

	resp, err := c.generateContent(ctx, c.imageModel, geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &geminiImageConfig{AspectRatio: ratio, ImageSize: imageSize},
		},
	})
	if err != nil {
		return InlineImage{}, err
	}
	return firstInlineImage(resp)
}

func firstInlineImage(resp *geminiGenerateContentResponse) (InlineImage, error) {
	if resp != nil && len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return InlineImage{}, fmt.Errorf("decode inline image: %w", err)
			}
			return InlineImage{MIMEType: part.InlineData.MimeType, Data: data}, nil
		}
	}
	return InlineImage{}, &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "model returned no image"}
}

func thumbnailPrompt(imageCount int, cfg domain.ThumbnailConfig) string {
	cfg = cfg.Normalize()
	var b strings.Builder
	fmt.Fprintf(&b, "Design a square 1:1 Etsy listing thumbnail featuring the product shown in the %d reference images.\n", imageCount)
	if cfg.ProductTitle != "" {
		fmt.Fprintf(&b, "Product: %s.\n", cfg.ProductTitle)
	}
	if cfg.ProductStyle != "" {
		fmt.Fprintf(&b, "Style: %s.\n", cfg.ProductStyle)
	}
	if cfg.ProductDescription != "" {
		fmt.Fprintf(&b, "Context: %s\n", truncate(cfg.ProductDescription, 400))
	}
	fmt.Fprintf(&b, "Background: %s.\n", cfg.Background.Describe())
	fmt.Fprintf(&b, "Layout: %s.\n", cfg.Layout.Describe())
	if cfg.Headline != "" {
		fmt.Fprintf(&b, "Headline text, large and legible: %q.\n", cfg.Headline)
	}
	if cfg.Badge != "" {
		fmt.Fprintf(&b, "Badge text in a corner: %q.\n", cfg.Badge)
	}
	if cfg.SizeText != "" {
		fmt.Fprintf(&b, "Size caption: %q.\n", cfg.SizeText)
	}
	if cfg.Instructions != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n", cfg.Instructions)
	}
	b.WriteString("Keep the products accurate to the photos. Text must be spelled exactly as given.")
	return b.String()
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
