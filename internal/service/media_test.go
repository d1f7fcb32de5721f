package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/disintegration/imaging"

	"bookpassport/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fileHeader(contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &multipart.FileHeader{Filename: "cover", Header: h, Size: size}
}

func TestResizeToJPEG_FillsCoverSize(t *testing.T) {
	data := pngBytes(t, 300, 200)

	out, err := resizeToJPEG(data, model.CoverWidth, model.CoverHeight, 85)
	if err != nil {
		t.Fatalf("resizeToJPEG: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != model.CoverWidth || b.Dy() != model.CoverHeight {
		t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), model.CoverWidth, model.CoverHeight)
	}
}

func TestReadAndValidateImage(t *testing.T) {
	data := pngBytes(t, 10, 10)

	_, ct, err := readAndValidateImage(bytes.NewReader(data), fileHeader("", int64(len(data))), model.MaxCoverSizeBytes)
	if err != nil {
		t.Fatalf("sniffed png: %v", err)
	}
	if ct != model.ContentTypePNG {
		t.Errorf("content type = %q", ct)
	}

	_, _, err = readAndValidateImage(bytes.NewReader([]byte("%PDF-1.4")), fileHeader("application/pdf", 8), model.MaxCoverSizeBytes)
	if !errors.Is(err, model.ErrInvalidImageType) {
		t.Errorf("pdf err = %v", err)
	}

	_, _, err = readAndValidateImage(bytes.NewReader(data), fileHeader(model.ContentTypePNG, int64(len(data))), 16)
	if !errors.Is(err, model.ErrFileTooLarge) {
		t.Errorf("oversized err = %v", err)
	}
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		model.ContentTypeJPEG: ".jpg",
		model.ContentTypePNG:  ".png",
		model.ContentTypeGIF:  ".gif",
		model.ContentTypeWebP: ".webp",
	}
	for ct, want := range tests {
		if got := extensionFor(ct); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", ct, got, want)
		}
	}
}
