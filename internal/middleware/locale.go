package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the negotiated language tag in the request context.
var LocaleKey = localeContextKey{}

// SupportedLocales are the languages user-facing messages are translated to.
// The first entry is the fallback.
var SupportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(SupportedLocales)

// Locale negotiates the response language from X-Locale, then
// Accept-Language, then defaultLocale.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	fallback := matchLocale(defaultLocale)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := detectLocale(r, fallback)
			w.Header().Set("Content-Language", tag.String())
			ctx := context.WithValue(r.Context(), LocaleKey, tag)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback language.Tag) language.Tag {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return matchLocale(v)
	}
	if v := strings.TrimSpace(r.Header.Get("Accept-Language")); v != "" {
		tags, _, err := language.ParseAcceptLanguage(v)
		if err == nil && len(tags) > 0 {
			tag, _, confidence := localeMatcher.Match(tags...)
			if confidence != language.No {
				return base(tag)
			}
		}
	}
	return fallback
}

func matchLocale(s string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return SupportedLocales[0]
	}
	matched, _, confidence := localeMatcher.Match(tag)
	if confidence == language.No {
		return SupportedLocales[0]
	}
	return base(matched)
}

// base strips the -u-rg extension the matcher adds for regional variants.
func base(tag language.Tag) language.Tag {
	b, _ := tag.Base()
	t, err := language.Compose(b)
	if err != nil {
		return SupportedLocales[0]
	}
	return t
}

// LocaleFromContext returns the negotiated language, English when unset.
func LocaleFromContext(ctx context.Context) language.Tag {
	if v, ok := ctx.Value(LocaleKey).(language.Tag); ok {
		return v
	}
	return SupportedLocales[0]
}
