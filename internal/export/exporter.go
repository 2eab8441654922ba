// Package export bundles completed asset records into downloads.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/pkg/zip"
)

// ErrNothingToExport is returned when no record has completed.
var ErrNothingToExport = errors.New("export: no completed assets")

// Archive is a finished zip download.
type Archive struct {
	Name string
	Data []byte
}

// Source loads the bytes at a result location.
type Source interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Exporter packages completed records.
type Exporter struct {
	source      Source
	logger      infra.Logger
	concurrency int
	now         func() time.Time
}

// NewExporter builds an exporter reading through source.
func NewExporter(source Source, logger *infra.Logger) *Exporter {
	l := zerolog.New(io.Discard)
	if logger != nil {
		l = *logger
	}
	return &Exporter{source: source, logger: l, concurrency: 8, now: time.Now}
}

// Export fetches every completed record and packs them in store order. Any
// failed fetch aborts the export.
func (e *Exporter) Export(ctx context.Context, records []domain.AssetJob) (Archive, error) {
	completed := make([]domain.AssetJob, 0, len(records))
	for _, r := range records {
		if r.Status == domain.StatusCompleted && r.ResultLocation != "" {
			completed = append(completed, r)
		}
	}
	if len(completed) == 0 {
		return Archive{}, ErrNothingToExport
	}

	names := EntryNames(completed)
	assets := make([]zip.Asset, len(completed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, rec := range completed {
		g.Go(func() error {
			data, err := e.source.Fetch(gctx, rec.ResultLocation)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", rec.ID, err)
			}
			assets[i] = zip.Asset{Filename: names[i], MIME: mimeFor(rec.Kind), Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Warn().Err(err).Int("assets", len(completed)).Msg("export: fetch failed")
		return Archive{}, err
	}

	data, err := zip.ArchiveAssets(assets)
	if err != nil {
		return Archive{}, fmt.Errorf("package archive: %w", err)
	}
	name := "etsy-assets-" + strconv.FormatInt(e.now().UnixMilli(), 10) + ".zip"
	e.logger.Info().Str("archive", name).Int("assets", len(assets)).Int("bytes", len(data)).Msg("export: archive ready")
	return Archive{Name: name, Data: data}, nil
}

// EntryNames returns etsy-<kind>-<last 6 of id>.<ext> for each record. Names
// that collide get a numeric suffix.
func EntryNames(records []domain.AssetJob) []string {
	seen := make(map[string]int, len(records))
	out := make([]string, len(records))
	for i, r := range records {
		id := r.ID
		if len(id) > 6 {
			id = id[len(id)-6:]
		}
		base := "etsy-" + string(r.Kind) + "-" + id
		ext := r.Kind.Extension()
		name := base + "." + ext
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s-%d.%s", base, n+1, ext)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

func mimeFor(kind domain.AssetKind) string {
	if kind == domain.KindVideo {
		return "video/mp4"
	}
	return "image/png"
}
