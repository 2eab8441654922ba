// Package studio drives asset generation for one seller workspace: it owns the
// uploaded photos, analysis, scene list and thumbnail settings, and turns them
// into asset jobs tracked in a jobstore.Store.
package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studio/internal/domain"
	"studio/internal/jobstore"
)

// Session is safe for concurrent use.
type Session struct {
	id    string
	opts  Options
	store *jobstore.Store
	ids   *idClock
	work  sync.WaitGroup

	mu         sync.Mutex
	images     []domain.ReferenceImage
	uploadSeq  uint64
	selected   int
	keywords   string
	analysis   *domain.Analysis
	scenes     domain.SceneList
	thumb      domain.ThumbnailConfig
	aspect     domain.AspectRatio
	generating bool
	analyzing  bool
	createdAt  time.Time
	touchedAt  time.Time
}

// NewSession returns an empty session.
func NewSession(id string, opts Options) *Session {
	opts = opts.withDefaults()
	now := opts.Now()
	return &Session{
		id:        id,
		opts:      opts,
		store:     jobstore.New(),
		ids:       &idClock{now: opts.Now},
		thumb:     domain.DefaultThumbnailConfig(),
		aspect:    domain.DefaultAspect,
		createdAt: now,
		touchedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store exposes the job records for reads.
func (s *Session) Store() *jobstore.Store { return s.store }

// ImageInfo describes an uploaded photo without its bytes.
type ImageInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// State is a point-in-time copy of the session settings.
type State struct {
	ID              string                 `json:"id"`
	Images          []ImageInfo            `json:"images"`
	SelectedImage   int                    `json:"selected_image"`
	Keywords        string                 `json:"keywords"`
	Analysis        *domain.Analysis       `json:"analysis"`
	Scenes          domain.SceneList       `json:"scenes"`
	ThumbnailConfig domain.ThumbnailConfig `json:"thumbnail_config"`
	AspectRatio     domain.AspectRatio     `json:"aspect_ratio"`
	Generating      bool                   `json:"generating"`
	Analyzing       bool                   `json:"analyzing"`
	AssetsVersion   uint64                 `json:"assets_version"`
	CreatedAt       time.Time              `json:"created_at"`
}

// State returns a copy of the current settings.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]ImageInfo, len(s.images))
	for i, img := range s.images {
		infos[i] = ImageInfo{Name: img.Name, MIMEType: img.MIMEType, Size: len(img.Data)}
	}
	var analysis *domain.Analysis
	if s.analysis != nil {
		a := *s.analysis
		analysis = &a
	}
	return State{
		ID:              s.id,
		Images:          infos,
		SelectedImage:   s.selected,
		Keywords:        s.keywords,
		Analysis:        analysis,
		Scenes:          append(domain.SceneList{}, s.scenes...),
		ThumbnailConfig: s.thumb,
		AspectRatio:     s.aspect,
		Generating:      s.generating,
		Analyzing:       s.analyzing,
		AssetsVersion:   s.store.Version(),
		CreatedAt:       s.createdAt,
	}
}

// Upload replaces the reference photos and resets everything derived from
// the previous set, including every job record.
func (s *Session) Upload(images []domain.ReferenceImage) error {
	if len(images) == 0 {
		return domain.ErrNoImages
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append([]domain.ReferenceImage(nil), images...)
	s.uploadSeq++
	s.selected = 0
	s.analysis = nil
	s.scenes = nil
	s.store.ReplaceAll(nil)
	s.touch()
	return nil
}

// Analyze runs product analysis over the current photos and seeds the scene
// list and thumbnail text from the result.
func (s *Session) Analyze(ctx context.Context) (domain.Analysis, error) {
	s.mu.Lock()
	if len(s.images) == 0 {
		s.mu.Unlock()
		return domain.Analysis{}, domain.ErrNoImages
	}
	images := append([]domain.ReferenceImage(nil), s.images...)
	keywords := s.keywords
	seq := s.uploadSeq
	s.analyzing = true
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	analysis, err := s.opts.Analyzer.AnalyzeProduct(callCtx, images, keywords)
	cancel()

	if err != nil {
		s.mu.Lock()
		s.analyzing = false
		s.mu.Unlock()
		s.opts.Logger.Warn().Err(err).Str("session_id", s.id).Msg("studio: analysis failed")
		if domain.IsPermissionError(err) {
			s.promptCredential(ctx)
		}
		return domain.Analysis{}, fmt.Errorf("analyze product: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	if seq != s.uploadSeq {
		// Photos were replaced while the call was in flight.
		return analysis, nil
	}
	s.analysis = &analysis
	s.scenes = append(domain.SceneList(nil), analysis.SuggestedScenes...)
	if analysis.ThumbnailHeadline != "" {
		s.thumb.Headline = analysis.ThumbnailHeadline
	}
	if analysis.ThumbnailBadge != "" {
		s.thumb.Badge = analysis.ThumbnailBadge
	}
	s.touch()
	return analysis, nil
}

// SetKeywords stores the seller's must-use keywords for the next analysis.
func (s *Session) SetKeywords(keywords string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = keywords
	s.touch()
}

// SelectImage picks the reference photo for scene images and video.
func (s *Session) SelectImage(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.images) {
		return domain.ErrImageIndex
	}
	s.selected = i
	s.touch()
	return nil
}

// SetAspectRatio sets the ratio used for scene images and mapped for video.
func (s *Session) SetAspectRatio(r domain.AspectRatio) error {
	if _, err := domain.ParseAspectRatio(string(r)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aspect = r
	s.touch()
	return nil
}

// SetThumbnailConfig replaces the thumbnail settings.
func (s *Session) SetThumbnailConfig(cfg domain.ThumbnailConfig) error {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ProductTitle, cfg.ProductDescription, cfg.ProductStyle = "", "", ""
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thumb = cfg
	s.touch()
	return nil
}

// AddScene appends a scene prompt.
func (s *Session) AddScene(text string) domain.SceneList {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = s.scenes.Add(text)
	s.touch()
	return append(domain.SceneList{}, s.scenes...)
}

// SetScene edits the scene at i.
func (s *Session) SetScene(i int, text string) (domain.SceneList, error) {
	return s.editScenes(func(l domain.SceneList) (domain.SceneList, error) { return l.Set(i, text) })
}

// RemoveScene deletes the scene at i.
func (s *Session) RemoveScene(i int) (domain.SceneList, error) {
	return s.editScenes(func(l domain.SceneList) (domain.SceneList, error) { return l.Remove(i) })
}

func (s *Session) editScenes(edit func(domain.SceneList) (domain.SceneList, error)) (domain.SceneList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := edit(s.scenes)
	if err != nil {
		return nil, err
	}
	s.scenes = next
	s.touch()
	return append(domain.SceneList{}, s.scenes...), nil
}

// Wait blocks until every background generation started by the session has
// settled or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.work.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IdleSince reports the last time the session was changed by a caller.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Session) touch() {
	s.touchedAt = s.opts.Now()
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Session) promptCredential(ctx context.Context) {
	if s.opts.Credentials == nil {
		return
	}
	if err := s.opts.Credentials.PromptForCredential(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.opts.Logger.Error().Err(err).Str("session_id", s.id).Msg("studio: credential prompt failed")
	}
}
