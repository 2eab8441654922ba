// Package media turns model output into stored files the studio can serve and export.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/imageops"
	"studio/internal/infra"
	"studio/internal/providers/genai"
)

// Model is the subset of the Gemini client the generator drives.
type Model interface {
	AnalyzeProduct(ctx context.Context, images []genai.InlineImage, keywords string) (domain.Analysis, error)
	GenerateSceneImage(ctx context.Context, ref genai.InlineImage, scene string, ratio domain.AspectRatio) (genai.InlineImage, error)
	GenerateThumbnail(ctx context.Context, refs []genai.InlineImage, cfg domain.ThumbnailConfig) (genai.InlineImage, error)
	GenerateProductVideo(ctx context.Context, ref genai.InlineImage, description string, ratio domain.AspectRatio) (genai.Video, error)
}

// Store persists bytes and maps keys to public URLs.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	URL(key string) string
}

// Generator implements studio.Generator and studio.Analyzer on top of a model
// client and a file store.
type Generator struct {
	model  Model
	store  Store
	logger infra.Logger
	newID  func() string
}

// NewGenerator wires the generator.
func NewGenerator(model Model, store Store, logger *infra.Logger) (*Generator, error) {
	if model == nil {
		return nil, errors.New("media: model is required")
	}
	if store == nil {
		return nil, errors.New("media: store is required")
	}
	l := zerolog.New(io.Discard)
	if logger != nil {
		l = *logger
	}
	return &Generator{model: model, store: store, logger: l, newID: uuid.NewString}, nil
}

// AnalyzeProduct forwards the uploaded photos to the model.
func (g *Generator) AnalyzeProduct(ctx context.Context, images []domain.ReferenceImage, keywords string) (domain.Analysis, error) {
	refs, err := g.references(images)
	if err != nil {
		return domain.Analysis{}, err
	}
	return g.model.AnalyzeProduct(ctx, refs, keywords)
}

// GenerateSceneImage renders one mockup and returns its URL.
func (g *Generator) GenerateSceneImage(ctx context.Context, ref domain.ReferenceImage, prompt string, ratio domain.AspectRatio) (string, error) {
	in, err := g.reference(ref)
	if err != nil {
		return "", err
	}
	img, err := g.model.GenerateSceneImage(ctx, in, prompt, ratio)
	if err != nil {
		return "", err
	}
	return g.persist(ctx, domain.KindImage, img.Data, img.MIMEType)
}

// GenerateThumbnail renders the listing thumbnail and squares it to the
// deliverable size before storing.
func (g *Generator) GenerateThumbnail(ctx context.Context, refs []domain.ReferenceImage, cfg domain.ThumbnailConfig) (string, error) {
	in, err := g.references(refs)
	if err != nil {
		return "", err
	}
	img, err := g.model.GenerateThumbnail(ctx, in, cfg)
	if err != nil {
		return "", err
	}
	squared, err := imageops.Square(img.Data, imageops.ThumbnailSize)
	if err != nil {
		return "", &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "thumbnail is not a decodable image", Err: err}
	}
	return g.persist(ctx, domain.KindThumbnail, squared, "image/png")
}

// GenerateProductVideo renders the product clip and returns its URL.
func (g *Generator) GenerateProductVideo(ctx context.Context, ref domain.ReferenceImage, description string, ratio domain.AspectRatio) (string, error) {
	in, err := g.reference(ref)
	if err != nil {
		return "", err
	}
	video, err := g.model.GenerateProductVideo(ctx, in, description, ratio)
	if err != nil {
		return "", err
	}
	return g.persist(ctx, domain.KindVideo, video.Data, video.MIMEType)
}

func (g *Generator) persist(ctx context.Context, kind domain.AssetKind, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "model returned no data"}
	}
	key := fmt.Sprintf("generated/%ss/%s.%s", kind, g.newID(), extensionFor(kind, mimeType))
	stored, err := g.store.Write(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", kind, err)
	}
	g.logger.Debug().Str("kind", string(kind)).Str("key", stored).Int("bytes", len(data)).Msg("media: stored asset")
	return g.store.URL(stored), nil
}

func (g *Generator) references(images []domain.ReferenceImage) ([]genai.InlineImage, error) {
	out := make([]genai.InlineImage, 0, len(images))
	for _, img := range images {
		ref, err := g.reference(img)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (g *Generator) reference(img domain.ReferenceImage) (genai.InlineImage, error) {
	data, mimeType, err := imageops.FitReference(img.Data, img.MIMEType, imageops.MaxReferenceEdge)
	if err != nil {
		return genai.InlineImage{}, &domain.ProviderError{Kind: domain.ProviderInvalidInput, Message: fmt.Sprintf("reference %q is not a supported image", img.Name), Err: err}
	}
	return genai.InlineImage{MIMEType: mimeType, Data: data}, nil
}

// extensionFor prefers the kind's archive extension and only deviates for
// image formats the model reports explicitly.
func extensionFor(kind domain.AssetKind, mimeType string) string {
	if kind != domain.KindImage {
		return kind.Extension()
	}
	base, _, _ := mime.ParseMediaType(mimeType)
	switch strings.ToLower(base) {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return kind.Extension()
	}
}
