package domain

import "strings"

// BackgroundStyle is one of the fixed thumbnail backdrops.
type BackgroundStyle string

const (
	BackgroundPinkGradient  BackgroundStyle = "pink-gradient"
	BackgroundPastelFloral  BackgroundStyle = "pastel-floral"
	BackgroundWarmEarth     BackgroundStyle = "warm-earth"
	BackgroundHoliday       BackgroundStyle = "holiday"
	BackgroundModernMinimal BackgroundStyle = "modern-minimal"
	BackgroundDarkLuxury    BackgroundStyle = "dark-luxury"
)

// LayoutStyle is how product shots are arranged on the thumbnail.
type LayoutStyle string

const (
	LayoutSpread  LayoutStyle = "spread"
	LayoutGrid    LayoutStyle = "grid"
	LayoutCollage LayoutStyle = "collage"
	LayoutFan     LayoutStyle = "fan"
)

var (
	backgroundStyles = map[BackgroundStyle]string{
		BackgroundPinkGradient:  "soft pink gradient",
		BackgroundPastelFloral:  "pastel floral pattern",
		BackgroundWarmEarth:     "warm earthy tones",
		BackgroundHoliday:       "festive holiday setting",
		BackgroundModernMinimal: "clean modern minimal backdrop",
		BackgroundDarkLuxury:    "dark luxurious backdrop",
	}
	layoutStyles = map[LayoutStyle]string{
		LayoutSpread:  "product cards fanned out across the frame",
		LayoutGrid:    "neat grid of product shots",
		LayoutCollage: "creative overlapping collage",
		LayoutFan:     "semi-circular fan arc",
	}
)

// Describe returns the phrase used when prompting the model.
func (b BackgroundStyle) Describe() string { return backgroundStyles[b] }

// Describe returns the phrase used when prompting the model.
func (l LayoutStyle) Describe() string { return layoutStyles[l] }

// ThumbnailConfig is the input of a single thumbnail job. It is copied into
// each call and never stored alongside job records.
type ThumbnailConfig struct {
	Headline     string          `json:"headline"`
	Badge        string          `json:"badge"`
	SizeText     string          `json:"size_text"`
	Background   BackgroundStyle `json:"background"`
	Layout       LayoutStyle     `json:"layout"`
	Instructions string          `json:"instructions"`

	ProductTitle       string `json:"product_title,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
	ProductStyle       string `json:"product_style,omitempty"`
}

// DefaultThumbnailConfig returns the config a new session starts with.
func DefaultThumbnailConfig() ThumbnailConfig {
	return ThumbnailConfig{Background: BackgroundPinkGradient, Layout: LayoutSpread}
}

// Normalize trims text fields and fills empty style identifiers with defaults.
func (c ThumbnailConfig) Normalize() ThumbnailConfig {
	c.Headline = strings.TrimSpace(c.Headline)
	c.Badge = strings.TrimSpace(c.Badge)
	c.SizeText = strings.TrimSpace(c.SizeText)
	c.Instructions = strings.TrimSpace(c.Instructions)
	if c.Background == "" {
		c.Background = BackgroundPinkGradient
	}
	if c.Layout == "" {
		c.Layout = LayoutSpread
	}
	return c
}

// Validate rejects style identifiers outside the closed sets.
func (c ThumbnailConfig) Validate() error {
	if _, ok := backgroundStyles[c.Background]; !ok {
		return ErrInvalidBackground
	}
	if _, ok := layoutStyles[c.Layout]; !ok {
		return ErrInvalidLayout
	}
	return nil
}

// WithProduct fills the product context from an analysis.
func (c ThumbnailConfig) WithProduct(a *Analysis) ThumbnailConfig {
	if a == nil {
		return c
	}
	c.ProductTitle = a.Title
	c.ProductDescription = a.Description
	c.ProductStyle = a.Style
	return c
}

// ThumbnailPrompt is the record prompt shown for a thumbnail job.
func ThumbnailPrompt(headline string) string {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		headline = "Product Showcase"
	}
	return "Thumbnail: " + headline
}

// VideoPrompt is the record prompt shown for a video job.
func VideoPrompt(description string) string {
	return "Cinematic video of " + description
}
