package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrHostNotAllowed is returned for remote locations outside the allowlist.
var ErrHostNotAllowed = errors.New("export: host not allowed")

const maxRemoteBytes = 512 << 20

// LocalStore resolves locations served by the local file store.
type LocalStore interface {
	KeyForURL(location string) (string, bool)
	Read(ctx context.Context, key string) ([]byte, error)
}

// Fetcher loads the bytes behind a result location.
type Fetcher struct {
	local  LocalStore
	client *http.Client
	allow  map[string]struct{}
}

// NewFetcher builds a fetcher. Remote http(s) locations are only fetched when
// their host is in allowHosts.
func NewFetcher(local LocalStore, client *http.Client, allowHosts []string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	allow := make(map[string]struct{}, len(allowHosts))
	for _, h := range allowHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allow[h] = struct{}{}
		}
	}
	return &Fetcher{local: local, client: client, allow: allow}
}

// Fetch returns the bytes at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("export: empty location")
	}
	if strings.HasPrefix(location, "data:") {
		return decodeDataURL(location)
	}
	if f.local != nil {
		if key, ok := f.local.KeyForURL(location); ok {
			return f.local.Read(ctx, key)
		}
	}
	return f.fetchRemote(ctx, location)
}

func (f *Fetcher) fetchRemote(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("export: unsupported scheme %q", u.Scheme)
	}
	if _, ok := f.allow[strings.ToLower(u.Hostname())]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Host, err)
	}
	return data, nil
}

func decodeDataURL(location string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(location, "data:"), ",")
	if !ok {
		return nil, errors.New("export: malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		return data, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return []byte(decoded), nil
}
