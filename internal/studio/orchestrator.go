package studio

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
	"studio/internal/events"
)

// GenerateOptions selects the optional parts of a generation pass.
type GenerateOptions struct {
	IncludeThumbnail bool
}

// Batch is one generation pass. Done closes when every image group has
// settled; the video and thumbnail jobs may still be running at that point.
type Batch struct {
	Jobs []domain.AssetJob
	done chan struct{}
}

// Done is closed once the image groups have finished.
func (b *Batch) Done() <-chan struct{} { return b.done }

type generationInput struct {
	ref         domain.ReferenceImage
	images      []domain.ReferenceImage
	description string
	ratio       domain.AspectRatio
	thumb       domain.ThumbnailConfig
}

// Generate creates one video job, an optional thumbnail job and one image
// job per non-blank scene, then runs them. Image jobs run in groups of
// BatchSize; a group is fully settled before the next one starts.
func (s *Session) Generate(ctx context.Context, opts GenerateOptions) (*Batch, error) {
	s.mu.Lock()
	if len(s.images) == 0 || s.analysis == nil {
		s.mu.Unlock()
		return nil, domain.ErrPreconditionFailed
	}
	if s.generating {
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	s.generating = true
	in := s.inputLocked()
	scenes := s.scenes.Active()
	s.touch()
	s.mu.Unlock()

	if s.opts.Credentials != nil && !s.opts.Credentials.HasCredential(ctx) {
		s.promptCredential(ctx)
	}

	stamp := s.ids.next()
	now := s.opts.Now()
	video := domain.NewAssetJob(videoID(stamp), domain.KindVideo, domain.VideoPrompt(in.description), now)
	jobs := []domain.AssetJob{video}
	var thumb *domain.AssetJob
	if opts.IncludeThumbnail {
		t := domain.NewAssetJob(thumbnailID(stamp), domain.KindThumbnail, domain.ThumbnailPrompt(in.thumb.Headline), now)
		thumb = &t
		jobs = append(jobs, t)
	}
	images := make([]domain.AssetJob, len(scenes))
	for i, scene := range scenes {
		images[i] = domain.NewAssetJob(imageID(stamp, i), domain.KindImage, scene, now)
	}
	jobs = append(jobs, images...)
	s.store.Append(jobs...)

	bg := context.WithoutCancel(ctx)
	if thumb != nil {
		s.spawn(func() { s.runThumbnail(bg, *thumb, in) })
	}
	s.spawn(func() { s.runVideo(bg, video, in.ref, in.description, in.ratio) })

	batch := &Batch{Jobs: jobs, done: make(chan struct{})}
	s.spawn(func() {
		defer close(batch.done)
		defer s.setGenerating(false)
		s.runImageGroups(bg, images, in)
	})

	s.opts.Logger.Info().
		Str("session_id", s.id).
		Int("images", len(images)).
		Bool("thumbnail", thumb != nil).
		Msg("studio: generation started")
	return batch, nil
}

// GenerateThumbnail starts a single thumbnail job from the current settings.
func (s *Session) GenerateThumbnail(ctx context.Context) (domain.AssetJob, error) {
	s.mu.Lock()
	if len(s.images) == 0 {
		s.mu.Unlock()
		return domain.AssetJob{}, domain.ErrNoImages
	}
	in := s.inputLocked()
	s.touch()
	s.mu.Unlock()

	if s.opts.Credentials != nil && !s.opts.Credentials.HasCredential(ctx) {
		s.promptCredential(ctx)
	}

	job := domain.NewAssetJob(thumbnailID(s.ids.next()), domain.KindThumbnail, domain.ThumbnailPrompt(in.thumb.Headline), s.opts.Now())
	s.store.Append(job)
	bg := context.WithoutCancel(ctx)
	s.spawn(func() { s.runThumbnail(bg, job, in) })
	return job, nil
}

// Retry regenerates an existing job in place using the current settings
// rather than the inputs captured when the job was created.
func (s *Session) Retry(ctx context.Context, id string) (domain.AssetJob, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return domain.AssetJob{}, domain.ErrJobNotFound
	}
	if !job.Status.Terminal() {
		return domain.AssetJob{}, fmt.Errorf("retry %s from %s: %w", id, job.Status, domain.ErrInvalidTransition)
	}

	s.mu.Lock()
	if len(s.images) == 0 {
		s.mu.Unlock()
		return domain.AssetJob{}, domain.ErrNoImages
	}
	in := s.inputLocked()
	s.touch()
	s.mu.Unlock()

	s.promptCredential(ctx)

	job, ok = s.store.UpdateIf(id, func(j domain.AssetJob) bool { return j.Status.Terminal() }, domain.StatusPatch(domain.StatusGenerating))
	if !ok {
		if _, exists := s.store.Get(id); !exists {
			return domain.AssetJob{}, domain.ErrJobNotFound
		}
		return domain.AssetJob{}, fmt.Errorf("retry %s: %w", id, domain.ErrInvalidTransition)
	}
	s.publish(ctx, job, domain.StatusGenerating, "", "")

	bg := context.WithoutCancel(ctx)
	switch job.Kind {
	case domain.KindThumbnail:
		s.spawn(func() { s.runThumbnail(bg, job, in) })
	case domain.KindVideo:
		description := in.description
		if strings.TrimSpace(description) == "" {
			description = job.Prompt
		}
		s.spawn(func() { s.runVideo(bg, job, in.ref, description, in.ratio) })
	default:
		s.spawn(func() { s.runImage(bg, job, in.ref, in.ratio) })
	}
	return job, nil
}

func (s *Session) inputLocked() generationInput {
	in := generationInput{
		images: append([]domain.ReferenceImage(nil), s.images...),
		ratio:  s.aspect,
		thumb:  s.thumb.WithProduct(s.analysis),
	}
	if s.selected >= 0 && s.selected < len(s.images) {
		in.ref = s.images[s.selected]
	} else if len(s.images) > 0 {
		in.ref = s.images[0]
	}
	if s.analysis != nil {
		in.description = s.analysis.Description
	}
	return in
}

func (s *Session) runImageGroups(ctx context.Context, jobs []domain.AssetJob, in generationInput) {
	size := s.opts.BatchSize
	for start := 0; start < len(jobs); start += size {
		end := min(start+size, len(jobs))
		var g errgroup.Group
		for _, job := range jobs[start:end] {
			g.Go(func() error {
				s.runImage(ctx, job, in.ref, in.ratio)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (s *Session) runImage(ctx context.Context, job domain.AssetJob, ref domain.ReferenceImage, ratio domain.AspectRatio) {
	s.runJob(ctx, job, func(ctx context.Context) (string, error) {
		return s.opts.Generator.GenerateSceneImage(ctx, ref, job.Prompt, ratio)
	})
}

func (s *Session) runVideo(ctx context.Context, job domain.AssetJob, ref domain.ReferenceImage, description string, ratio domain.AspectRatio) {
	ratio = domain.VideoAspect(ratio)
	s.runJob(ctx, job, func(ctx context.Context) (string, error) {
		return s.opts.Generator.GenerateProductVideo(ctx, ref, description, ratio)
	})
}

func (s *Session) runThumbnail(ctx context.Context, job domain.AssetJob, in generationInput) {
	s.runJob(ctx, job, func(ctx context.Context) (string, error) {
		return s.opts.Generator.GenerateThumbnail(ctx, in.images, in.thumb)
	})
}

// runJob drives one record through generating to completed or error.
// Failures stay on the record and never reach the caller.
func (s *Session) runJob(ctx context.Context, job domain.AssetJob, call func(context.Context) (string, error)) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, job, fmt.Errorf("generator panic: %v", r))
		}
	}()

	s.transition(ctx, job, domain.StatusGenerating)

	callCtx, cancel := s.callContext(ctx)
	location, err := call(callCtx)
	cancel()
	if err == nil && strings.TrimSpace(location) == "" {
		err = &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "empty result location"}
	}
	if err != nil {
		s.fail(ctx, job, err)
		return
	}

	if s.store.UpdateByID(job.ID, domain.CompletedPatch(location)) {
		s.publish(ctx, job, domain.StatusCompleted, location, "")
	}
}

func (s *Session) fail(ctx context.Context, job domain.AssetJob, err error) {
	kind := domain.ProviderErrorKindOf(err)
	s.opts.Logger.Warn().
		Err(err).
		Str("session_id", s.id).
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Str("error_kind", string(kind)).
		Msg("studio: asset generation failed")
	if s.transition(ctx, job, domain.StatusError) {
		s.publishError(ctx, job, kind)
	}
	if domain.IsPermissionError(err) {
		s.promptCredential(ctx)
	}
}

// transition moves a record to status if the edge is legal for its current
// state and reports whether the record still exists.
func (s *Session) transition(ctx context.Context, job domain.AssetJob, status domain.AssetStatus) bool {
	current, ok := s.store.Get(job.ID)
	if !ok {
		return false
	}
	if current.Status == status {
		return true
	}
	if !current.Status.CanTransition(status) {
		s.opts.Logger.Debug().
			Str("job_id", job.ID).
			Str("from", string(current.Status)).
			Str("to", string(status)).
			Msg("studio: skipped illegal transition")
		return true
	}
	if !s.store.UpdateByID(job.ID, domain.StatusPatch(status)) {
		return false
	}
	if status != domain.StatusError {
		s.publish(ctx, job, status, "", "")
	}
	return true
}

func (s *Session) publish(ctx context.Context, job domain.AssetJob, status domain.AssetStatus, location string, errKind domain.ProviderErrorKind) {
	ev := events.Event{
		SessionID: s.id,
		JobID:     job.ID,
		Kind:      job.Kind,
		Status:    status,
		Location:  location,
		ErrorKind: string(errKind),
		At:        s.opts.Now(),
	}
	if err := s.opts.Publisher.Publish(ctx, ev); err != nil {
		s.opts.Logger.Debug().Err(err).Str("job_id", job.ID).Msg("studio: publish event failed")
	}
}

func (s *Session) publishError(ctx context.Context, job domain.AssetJob, kind domain.ProviderErrorKind) {
	s.publish(ctx, job, domain.StatusError, "", kind)
}

func (s *Session) spawn(fn func()) {
	s.work.Add(1)
	go func() {
		defer s.work.Done()
		fn()
	}()
}

func (s *Session) setGenerating(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = v
}
