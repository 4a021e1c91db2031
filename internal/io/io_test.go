package ioutils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Song: Part 1/2", "Song_ Part 1_2"},
		{"Track...", "Track"},
		{"Name   with  spaces", "Name with spaces"},
		{"tab\there", "tab_here"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfinePath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"cover.jpg", filepath.Join(root, "cover.jpg"), false},
		{"../../etc/passwd", filepath.Join(root, ".._.._etc_passwd"), false},
		{`..\evil.txt`, filepath.Join(root, ".._evil.txt"), false},
		{"..", "", true},
		{"...", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfinePath(root, tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideRoot) {
					t.Fatalf("ConfinePath(%q) error = %v, want ErrOutsideRoot", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ConfinePath(%q) unexpected error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ConfinePath(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestWriteFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.txt")

	if err := WriteFile(path, []byte("content")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("file content = %q, want %q", data, "content")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no leftover temp file)", len(entries))
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageService_ResizeImage(t *testing.T) {
	svc := NewImageService()

	out, err := svc.ResizeImage(testPNG(t, 300, 150), 100, 100)
	if err != nil {
		t.Fatalf("ResizeImage() error: %v", err)
	}

	img, format, err := svc.Decode(out)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("size = %v, want 100x50", img.Bounds().Size())
	}
}

func TestImageService_ResizeKeepsSmallImages(t *testing.T) {
	svc := NewImageService()
	img, _, err := svc.Decode(testPNG(t, 40, 30))
	if err != nil {
		t.Fatal(err)
	}

	if got := svc.Resize(img, 100, 100); got != img {
		t.Error("Resize() should return the original image when it already fits")
	}
}

func TestImageService_DecodeRejectsGarbage(t *testing.T) {
	if _, _, err := NewImageService().Decode([]byte("not an image")); err == nil {
		t.Error("Decode() should fail on non-image data")
	}
}
