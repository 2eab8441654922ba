package domain

import "strings"

// AspectRatio is the frame shape requested from the image and video models.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
)

// DefaultAspect is used until the seller picks one.
const DefaultAspect = AspectSquare

// ParseAspectRatio accepts one of the image ratios. Empty input yields the default.
func ParseAspectRatio(s string) (AspectRatio, error) {
	switch r := AspectRatio(strings.TrimSpace(s)); r {
	case "":
		return DefaultAspect, nil
	case AspectSquare, AspectPortrait, AspectLandscape:
		return r, nil
	default:
		return "", ErrInvalidAspect
	}
}

// VideoAspect maps an image ratio onto the two ratios the video model supports.
func VideoAspect(r AspectRatio) AspectRatio {
	if r == AspectPortrait {
		return AspectPortrait
	}
	return AspectLandscape
}
