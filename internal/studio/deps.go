package studio

import (
	"context"
	"time"

	"studio/internal/domain"
	"studio/internal/events"
	"studio/internal/infra"
)

// BatchSize bounds how many scene images are generated at once.
const BatchSize = 3

// Generator produces media and returns a location the exporter can fetch.
type Generator interface {
	GenerateSceneImage(ctx context.Context, ref domain.ReferenceImage, prompt string, ratio domain.AspectRatio) (string, error)
	GenerateProductVideo(ctx context.Context, ref domain.ReferenceImage, description string, ratio domain.AspectRatio) (string, error)
	GenerateThumbnail(ctx context.Context, refs []domain.ReferenceImage, cfg domain.ThumbnailConfig) (string, error)
}

// Analyzer turns product photos into listing metadata.
type Analyzer interface {
	AnalyzeProduct(ctx context.Context, images []domain.ReferenceImage, keywords string) (domain.Analysis, error)
}

// Credentials gates provider calls on a usable API key.
type Credentials interface {
	HasCredential(ctx context.Context) bool
	PromptForCredential(ctx context.Context) error
}

// Options wires a session to its collaborators.
type Options struct {
	Generator   Generator
	Analyzer    Analyzer
	Credentials Credentials
	Publisher   events.Publisher
	Logger      infra.Logger
	// CallTimeout caps each provider call. Zero means no limit.
	CallTimeout time.Duration
	BatchSize   int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = events.NopPublisher{}
	}
	if o.BatchSize <= 0 {
		o.BatchSize = BatchSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
