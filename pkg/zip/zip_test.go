package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "etsy-image-000001.png", MIME: "image/png", Data: bytes.Repeat([]byte("p"), 512)},
		{Filename: "etsy-video-000002.mp4", MIME: "video/mp4", Data: []byte("mp4")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}
	if zr.File[0].Name != "etsy-image-000001.png" || zr.File[0].Method != zip.Deflate {
		t.Fatalf("first entry = %s method %d", zr.File[0].Name, zr.File[0].Method)
	}
	if zr.File[1].Method != zip.Store {
		t.Fatalf("video method = %d, want store", zr.File[1].Method)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if len(got) != 512 {
		t.Fatalf("entry size = %d", len(got))
	}
}

func TestArchiveAssetsEmpty(t *testing.T) {
	data, err := ArchiveAssets(nil)
	if err != nil {
		t.Fatalf("ArchiveAssets error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || len(zr.File) != 0 {
		t.Fatalf("empty archive = %v, %v", zr, err)
	}
}
