package domain

// Analysis is the listing metadata produced from the uploaded product photos.
type Analysis struct {
	Title             string   `json:"title"`
	Tags              []string `json:"tags"`
	Description       string   `json:"description"`
	Style             string   `json:"style"`
	SuggestedScenes   []string `json:"suggestedScenes"`
	SEOReasoning      string   `json:"seoReasoning,omitempty"`
	ThumbnailHeadline string   `json:"thumbnailHeadline,omitempty"`
	ThumbnailBadge    string   `json:"thumbnailBadge,omitempty"`
}

// ReferenceImage is one uploaded product photo.
type ReferenceImage struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}
