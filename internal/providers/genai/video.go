package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
)

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	AspectRatio    string `json:"aspectRatio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	NumberOfVideos int    `json:"sampleCount,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (op *veoOperation) videoURI() string {
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}

// Video is a downloaded clip.
type Video struct {
	MIMEType string
	Data     []byte
}

// GenerateProductVideo starts a long-running video generation seeded with ref,
// polls it until done and downloads the first clip. Square ratios fall back to 16:9.
func (c *Client) GenerateProductVideo(ctx context.Context, ref InlineImage, description string, ratio domain.AspectRatio) (Video, error) {
	mime := ref.MIMEType
	if mime == "" {
		mime = http.DetectContentType(ref.Data)
	}
	payload := veoRequest{
		Instances: []veoInstance{{
			Prompt: fmt.Sprintf("Cinematic, professional product video of %s. Smooth camera movement, highly detailed, photorealistic, slow motion product showcase.", strings.TrimSpace(description)),
			Image:  &veoImage{BytesBase64Encoded: base64.StdEncoding.EncodeToString(ref.Data), MimeType: mime},
		}},
		Parameters: veoParameters{
			AspectRatio:    string(domain.VideoAspect(ratio)),
			Resolution:     "720p",
			NumberOfVideos: 1,
		},
	}

	var op veoOperation
	if err := c.invoke(ctx, http.MethodPost, "/models/"+c.videoModel+":predictLongRunning", payload, &op); err != nil {
		return Video{}, err
	}
	c.logger.Debug().Str("operation", op.Name).Msg("genai: video operation started")

	uri, err := c.awaitVideo(ctx, op)
	if err != nil {
		return Video{}, err
	}

	data, contentType, err := c.download(ctx, uri)
	if err != nil {
		return Video{}, err
	}
	if len(data) == 0 {
		return Video{}, &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "downloaded video is empty"}
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "video/mp4"
	}
	return Video{MIMEType: contentType, Data: data}, nil
}

func (c *Client) awaitVideo(ctx context.Context, op veoOperation) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if op.Name == "" {
			return "", fmt.Errorf("poll video operation: missing operation name")
		}
		var next veoOperation
		if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(op.Name, "/"), nil, &next); err != nil {
			return "", err
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
	}

	if op.Error != nil {
		return "", &domain.ProviderError{Kind: domain.ClassifyStatus(grpcToHTTP(op.Error.Code)), Status: op.Error.Code, Message: op.Error.Message}
	}
	uri := op.videoURI()
	if uri == "" {
		return "", &domain.ProviderError{Kind: domain.ProviderEmpty, Message: "no video URI returned"}
	}
	return uri, nil
}

// grpcToHTTP maps the google.rpc codes found in operation errors to HTTP
// statuses so they classify like direct responses.
func grpcToHTTP(code int) int {
	switch code {
	case 3, 9, 11:
		return http.StatusBadRequest
	case 5:
		return http.StatusNotFound
	case 7:
		return http.StatusForbidden
	case 8:
		return http.StatusTooManyRequests
	case 16:
		return http.StatusUnauthorized
	case 4:
		return http.StatusGatewayTimeout
	default:
		if code >= 400 {
			return code
		}
		return http.StatusInternalServerError
	}
}
