package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"studio/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(Options{
		Keys:         StaticKey("test-key"),
		BaseURL:      "https://gemini.test/v1beta",
		PollInterval: time.Millisecond,
		HTTPClient:   &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func textReply(text string) string {
	raw, _ := json.Marshal(geminiGenerateContentResponse{Candidates: []geminiCandidate{{
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}}})
	return string(raw)
}

func TestAnalyzeProductParsesFencedJSON(t *testing.T) {
	var captured geminiGenerateContentRequest
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Fatalf("path = %q", req.URL.Path)
		}
		if got := req.URL.Query().Get("key"); got != "test-key" {
			t.Fatalf("key = %q, want test-key", got)
		}
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		body := "```json\n{\"title\":\"Boho Wall Art\",\"tags\":[\"boho\",\" \",\"art\"],\"description\":\"Nice\",\"style\":\"Boho\",\"suggestedScenes\":[\"Loft\",\"Cafe\"],\"thumbnailHeadline\":\"Digital Print\"}\n```"
		return jsonResponse(http.StatusOK, textReply(body)), nil
	})

	got, err := client.AnalyzeProduct(context.Background(), []InlineImage{
		{MIMEType: "image/png", Data: []byte("a")},
		{MIMEType: "image/jpeg", Data: []byte("b")},
	}, "wall decor")
	if err != nil {
		t.Fatalf("AnalyzeProduct error: %v", err)
	}
	if got.Title != "Boho Wall Art" || got.ThumbnailHeadline != "Digital Print" {
		t.Fatalf("analysis = %+v", got)
	}
	if len(got.Tags) != 2 || len(got.SuggestedScenes) != 2 {
		t.Fatalf("tags = %v scenes = %v", got.Tags, got.SuggestedScenes)
	}

	parts := captured.Contents[0].Parts
	if len(parts) != 3 || parts[0].InlineData == nil || parts[1].InlineData.MimeType != "image/jpeg" {
		t.Fatalf("request parts = %+v", parts)
	}
	if !strings.Contains(parts[2].Text, "wall decor") {
		t.Fatalf("prompt missing keywords: %q", parts[2].Text)
	}
	if captured.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("response mime = %q", captured.GenerationConfig.ResponseMimeType)
	}
}

func TestAnalyzeProductRejectsSchemaMismatch(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, textReply(`{"title":"x","tags":"not-a-list"}`)), nil
	})
	_, err := client.AnalyzeProduct(context.Background(), []InlineImage{{Data: []byte("a")}}, "")
	if kind := domain.ProviderErrorKindOf(err); kind != domain.ProviderEmpty {
		t.Fatalf("kind = %q, err = %v", kind, err)
	}
}

func TestStatusErrorsClassify(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ProviderErrorKind
	}{
		{http.StatusForbidden, domain.ProviderPermission},
		{http.StatusNotFound, domain.ProviderPermission},
		{http.StatusTooManyRequests, domain.ProviderTransient},
		{http.StatusServiceUnavailable, domain.ProviderTransient},
		{http.StatusBadRequest, domain.ProviderInvalidInput},
	}
	for _, tc := range tests {
		client := newTestClient(t, func(*http.Request) (*http.Response, error) {
			return jsonResponse(tc.status, `{"error":{"code":1,"message":"boom"}}`), nil
		})
		_, err := client.GenerateSceneImage(context.Background(), InlineImage{Data: []byte("a")}, "loft", domain.AspectSquare)
		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			t.Fatalf("status %d: err = %v, want ProviderError", tc.status, err)
		}
		if perr.Kind != tc.want || perr.Status != tc.status || perr.Message != "boom" {
			t.Fatalf("status %d: got %+v, want kind %q", tc.status, perr, tc.want)
		}
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})
	_, err := client.GenerateSceneImage(context.Background(), InlineImage{Data: []byte("a")}, "loft", domain.AspectSquare)
	if kind := domain.ProviderErrorKindOf(err); kind != domain.ProviderTransient {
		t.Fatalf("kind = %q", kind)
	}
}

type emptyKey struct{}

func (emptyKey) APIKey(context.Context) (string, error) { return "", errors.New("no key") }

func TestMissingKeyIsPermission(t *testing.T) {
	client, err := NewClient(Options{Keys: emptyKey{}, HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("request sent without a key")
		return nil, nil
	})}})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	_, err = client.GenerateSceneImage(context.Background(), InlineImage{Data: []byte("a")}, "loft", domain.AspectSquare)
	if !domain.IsPermissionError(err) {
		t.Fatalf("err = %v, want permission", err)
	}
}

func TestGenerateSceneImageRequestsImageConfig(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var payload geminiGenerateContentRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		cfg := payload.GenerationConfig.ImageConfig
		if cfg == nil || cfg.AspectRatio != "9:16" || cfg.ImageSize != "4K" {
			t.Fatalf("image config = %+v", cfg)
		}
		if !strings.Contains(payload.Contents[0].Parts[1].Text, "marble counter") {
			t.Fatalf("prompt = %q", payload.Contents[0].Parts[1].Text)
		}
		raw, _ := json.Marshal(geminiGenerateContentResponse{Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{
			{Text: "here you go"},
			{InlineData: &geminiInlineData{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(png)}},
		}}}}})
		return jsonResponse(http.StatusOK, string(raw)), nil
	})

	img, err := client.GenerateSceneImage(context.Background(), InlineImage{MIMEType: "image/jpeg", Data: []byte("ref")}, "marble counter", domain.AspectPortrait)
	if err != nil {
		t.Fatalf("GenerateSceneImage error: %v", err)
	}
	if img.MIMEType != "image/png" || string(img.Data) != string(png) {
		t.Fatalf("image = %+v", img)
	}
}

func TestGenerateImageWithoutInlineDataIsEmpty(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, textReply("I cannot do that")), nil
	})
	_, err := client.GenerateThumbnail(context.Background(), []InlineImage{{Data: []byte("a")}}, domain.DefaultThumbnailConfig())
	if kind := domain.ProviderErrorKindOf(err); kind != domain.ProviderEmpty {
		t.Fatalf("kind = %q", kind)
	}
}

func TestThumbnailPromptCarriesConfig(t *testing.T) {
	cfg := domain.ThumbnailConfig{
		Headline:     "Printable Art",
		Badge:        "Instant Download",
		Background:   domain.BackgroundDarkLuxury,
		Layout:       domain.LayoutGrid,
		ProductTitle: "Boho Print Set",
	}
	prompt := thumbnailPrompt(3, cfg)
	for _, want := range []string{"3 reference images", `"Printable Art"`, `"Instant Download"`, "Boho Print Set", domain.BackgroundDarkLuxury.Describe(), domain.LayoutGrid.Describe()} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGenerateProductVideoPollsAndDownloads(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(req.URL.Path, ":predictLongRunning"):
			var payload veoRequest
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if payload.Parameters.AspectRatio != "16:9" || payload.Parameters.Resolution != "720p" {
				t.Fatalf("parameters = %+v", payload.Parameters)
			}
			return jsonResponse(http.StatusOK, `{"name":"models/veo/operations/op1"}`), nil
		case strings.HasSuffix(req.URL.Path, "/operations/op1"):
			polls++
			if polls < 2 {
				return jsonResponse(http.StatusOK, `{"name":"models/veo/operations/op1","done":false}`), nil
			}
			return jsonResponse(http.StatusOK, `{"done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files.test/v1beta/files/abc:download?alt=media"}}]}}}`), nil
		case req.URL.Host == "files.test":
			if req.URL.Query().Get("key") != "test-key" || req.URL.Query().Get("alt") != "media" {
				t.Fatalf("download query = %q", req.URL.RawQuery)
			}
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("mp4-bytes"))}, nil
		}
		t.Fatalf("unexpected request %s", req.URL)
		return nil, nil
	})

	video, err := client.GenerateProductVideo(context.Background(), InlineImage{Data: []byte("ref")}, "a ceramic mug", domain.AspectSquare)
	if err != nil {
		t.Fatalf("GenerateProductVideo error: %v", err)
	}
	if string(video.Data) != "mp4-bytes" || video.MIMEType != "video/mp4" {
		t.Fatalf("video = %q %q", video.MIMEType, video.Data)
	}
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
}

func TestGenerateProductVideoOperationError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"name":"op","done":true,"error":{"code":7,"message":"denied"}}`), nil
	})
	_, err := client.GenerateProductVideo(context.Background(), InlineImage{Data: []byte("ref")}, "mug", domain.AspectPortrait)
	if !domain.IsPermissionError(err) {
		t.Fatalf("err = %v, want permission", err)
	}
}
