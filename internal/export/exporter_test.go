package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"studio/internal/domain"
	"studio/internal/storage"
)

type mapSource struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls int
}

func (s *mapSource) Fetch(_ context.Context, location string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	data, ok := s.data[location]
	if !ok {
		return nil, errors.New("missing " + location)
	}
	return data, nil
}

func job(id string, kind domain.AssetKind, status domain.AssetStatus, loc string) domain.AssetJob {
	return domain.AssetJob{ID: id, Kind: kind, Status: status, ResultLocation: loc, Prompt: "p-" + id}
}

func TestExportPacksCompletedRecords(t *testing.T) {
	src := &mapSource{data: map[string][]byte{
		"loc/a": []byte("A"), "loc/b": []byte("B"), "loc/v": []byte("V"),
	}}
	e := NewExporter(src, nil)
	e.now = func() time.Time { return time.UnixMilli(1700000000000) }

	records := []domain.AssetJob{
		job("video-1700000000001", domain.KindVideo, domain.StatusCompleted, "loc/v"),
		job("img-1700000000001-0", domain.KindImage, domain.StatusCompleted, "loc/a"),
		job("img-1700000000001-1", domain.KindImage, domain.StatusError, ""),
		job("img-1700000000001-2", domain.KindImage, domain.StatusCompleted, "loc/b"),
		job("img-1700000000001-3", domain.KindImage, domain.StatusGenerating, ""),
	}
	archive, err := e.Export(context.Background(), records)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if archive.Name != "etsy-assets-1700000000000.zip" {
		t.Fatalf("name = %q", archive.Name)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := []struct{ name, body string }{
		{"etsy-video-000001.mp4", "V"},
		{"etsy-image-0001-0.png", "A"},
		{"etsy-image-0001-2.png", "B"},
	}
	if len(zr.File) != len(want) {
		t.Fatalf("entries = %d, want %d", len(zr.File), len(want))
	}
	for i, w := range want {
		f := zr.File[i]
		if f.Name != w.name {
			t.Fatalf("entry %d = %q, want %q", i, f.Name, w.name)
		}
		rc, _ := f.Open()
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != w.body {
			t.Fatalf("entry %s body = %q, want %q", f.Name, body, w.body)
		}
	}
	if src.calls != 3 {
		t.Fatalf("fetches = %d, want 3", src.calls)
	}
}

func TestExportNothingCompleted(t *testing.T) {
	src := &mapSource{}
	e := NewExporter(src, nil)
	_, err := e.Export(context.Background(), []domain.AssetJob{
		job("img-1", domain.KindImage, domain.StatusError, ""),
		job("img-2", domain.KindImage, domain.StatusPending, ""),
	})
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("err = %v, want ErrNothingToExport", err)
	}
	if src.calls != 0 {
		t.Fatalf("fetches = %d, want 0", src.calls)
	}
}

func TestExportAbortsOnFetchFailure(t *testing.T) {
	src := &mapSource{data: map[string][]byte{"loc/a": []byte("A")}}
	e := NewExporter(src, nil)
	archive, err := e.Export(context.Background(), []domain.AssetJob{
		job("img-1-0", domain.KindImage, domain.StatusCompleted, "loc/a"),
		job("img-1-1", domain.KindImage, domain.StatusCompleted, "loc/gone"),
	})
	if err == nil || archive.Data != nil {
		t.Fatalf("Export = %q, %v; want error and no archive", archive.Name, err)
	}
}

func TestEntryNamesDeduplicate(t *testing.T) {
	names := EntryNames([]domain.AssetJob{
		{ID: "img-100-123456", Kind: domain.KindImage},
		{ID: "img-200-123456", Kind: domain.KindImage},
		{ID: "thumb-1700000000009", Kind: domain.KindThumbnail},
	})
	want := []string{"etsy-image-123456.png", "etsy-image-123456-2.png", "etsy-thumbnail-000009.png"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestFetcherSources(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()
	if _, err := fs.Write(ctx, "generated/images/a.png", []byte("local")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("remote"))}, nil
	})}
	f := NewFetcher(fs, client, []string{"cdn.example.com"})

	tests := []struct {
		location string
		want     string
		wantErr  bool
	}{
		{location: "http://localhost:8080/static/generated/images/a.png", want: "local"},
		{location: "data:image/png;base64,aGVsbG8=", want: "hello"},
		{location: "data:text/plain,hi%20there", want: "hi there"},
		{location: "https://cdn.example.com/x.png", want: "remote"},
		{location: "https://evil.example.com/x.png", wantErr: true},
		{location: "ftp://cdn.example.com/x.png", wantErr: true},
		{location: "http://localhost:8080/static/generated/images/missing.png", wantErr: true},
	}
	for _, tc := range tests {
		got, err := f.Fetch(ctx, tc.location)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Fetch(%q) = %q, want error", tc.location, got)
			}
			continue
		}
		if err != nil || string(got) != tc.want {
			t.Fatalf("Fetch(%q) = %q, %v; want %q", tc.location, got, err, tc.want)
		}
	}
}

func TestListingSheet(t *testing.T) {
	data, err := ListingSheet(domain.Analysis{Title: "Boho Mug", Tags: []string{"mug", "boho"}}, []domain.AssetJob{
		job("img-1-000001", domain.KindImage, domain.StatusCompleted, "http://x/a.png"),
		job("img-1-000002", domain.KindImage, domain.StatusError, ""),
	})
	if err != nil {
		t.Fatalf("ListingSheet error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Listing", "B1"); v != "Boho Mug" {
		t.Fatalf("title cell = %q", v)
	}
	if v, _ := f.GetCellValue("Listing", "B2"); v != "mug, boho" {
		t.Fatalf("tags cell = %q", v)
	}
	rows, err := f.GetRows("Assets")
	if err != nil {
		t.Fatalf("GetRows error: %v", err)
	}
	if len(rows) != 2 || rows[1][3] != "etsy-image-000001.png" {
		t.Fatalf("asset rows = %v", rows)
	}
}
