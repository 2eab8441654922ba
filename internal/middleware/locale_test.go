package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback language.Tag
		want     language.Tag
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ID")
				r.Header.Set("Accept-Language", "en-US")
			},
			fallback: language.English,
			want:     language.Indonesian,
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			fallback: language.Indonesian,
			want:     language.English,
		},
		{
			name: "accept-language id preference",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id-ID,en;q=0.8")
			},
			fallback: language.English,
			want:     language.Indonesian,
		},
		{
			name: "unsupported x-locale falls back to english",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "not a tag!")
			},
			fallback: language.Indonesian,
			want:     language.English,
		},
		{
			name: "unsupported accept-language uses configured fallback",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "ja-JP")
			},
			fallback: language.Indonesian,
			want:     language.Indonesian,
		},
		{
			name:     "configured fallback",
			fallback: language.Indonesian,
			want:     language.Indonesian,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := detectLocale(req, tc.fallback)
			if got.String() != tc.want.String() {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocaleMiddleware(t *testing.T) {
	var got language.Tag
	h := Locale("id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got.String() != "id" {
		t.Fatalf("locale = %q, want id", got)
	}
	if rec.Header().Get("Content-Language") != "id" {
		t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got.String() != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want en", got)
	}
	ctx = context.WithValue(ctx, LocaleKey, language.Indonesian)
	if got := LocaleFromContext(ctx); got.String() != "id" {
		t.Fatalf("LocaleFromContext() with value = %q, want id", got)
	}
}
