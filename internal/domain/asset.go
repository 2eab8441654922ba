package domain

import "time"

// AssetKind identifies what a job produces. It never changes after creation.
type AssetKind string

const (
	KindImage     AssetKind = "image"
	KindVideo     AssetKind = "video"
	KindThumbnail AssetKind = "thumbnail"
)

// ParseAssetKind validates a kind received from a client.
func ParseAssetKind(s string) (AssetKind, error) {
	switch AssetKind(s) {
	case KindImage, KindVideo, KindThumbnail:
		return AssetKind(s), nil
	default:
		return "", ErrInvalidKind
	}
}

// Extension returns the archive file extension for media of this kind.
func (k AssetKind) Extension() string {
	if k == KindVideo {
		return "mp4"
	}
	return "png"
}

// AssetStatus is the lifecycle state of a job.
type AssetStatus string

const (
	StatusPending    AssetStatus = "pending"
	StatusGenerating AssetStatus = "generating"
	StatusCompleted  AssetStatus = "completed"
	StatusError      AssetStatus = "error"
)

// Terminal reports whether no further work is in flight for the status.
func (s AssetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether moving from s to next is a legal edge.
// Terminal states only go back to generating through a retry.
func (s AssetStatus) CanTransition(next AssetStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusGenerating
	case StatusGenerating:
		return next == StatusCompleted || next == StatusError || next == StatusGenerating
	case StatusCompleted, StatusError:
		return next == StatusGenerating
	default:
		return false
	}
}

// AssetJob is one requested generation and its current state. Values are
// treated as immutable; updates go through Apply which returns a copy.
type AssetJob struct {
	ID             string      `json:"id"`
	Kind           AssetKind   `json:"type"`
	Prompt         string      `json:"prompt"`
	Status         AssetStatus `json:"status"`
	ResultLocation string      `json:"url"`
	IsHighQuality  bool        `json:"is_4k"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Patch carries the subset of fields an update sets. Nil fields are left as is.
type Patch struct {
	Status         *AssetStatus
	ResultLocation *string
	IsHighQuality  *bool
}

// Empty reports whether the patch sets nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.ResultLocation == nil && p.IsHighQuality == nil
}

// Apply returns a copy of j with the fields present in p replaced.
func (j AssetJob) Apply(p Patch, now time.Time) AssetJob {
	if p.Empty() {
		return j
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.ResultLocation != nil {
		j.ResultLocation = *p.ResultLocation
	}
	if p.IsHighQuality != nil {
		j.IsHighQuality = *p.IsHighQuality
	}
	j.UpdatedAt = now
	return j
}

// StatusPatch sets only the status.
func StatusPatch(s AssetStatus) Patch {
	return Patch{Status: &s}
}

// CompletedPatch marks a job completed at location.
func CompletedPatch(location string) Patch {
	s := StatusCompleted
	hq := true
	return Patch{Status: &s, ResultLocation: &location, IsHighQuality: &hq}
}

// NewAssetJob builds a record in its initial state. Images wait behind the
// batch cap, everything else starts generating.
func NewAssetJob(id string, kind AssetKind, prompt string, now time.Time) AssetJob {
	status := StatusGenerating
	if kind == KindImage {
		status = StatusPending
	}
	return AssetJob{
		ID:            id,
		Kind:          kind,
		Prompt:        prompt,
		Status:        status,
		IsHighQuality: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
