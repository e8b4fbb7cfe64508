package storage

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestDecodeImagePayloadDataURL(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	data, contentType, err := DecodeImagePayload(payload)
	if err != nil {
		t.Fatalf("DecodeImagePayload returned error: %v", err)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", contentType)
	}
	if len(data) != len(raw) {
		t.Fatalf("expected %d bytes, got %d", len(raw), len(data))
	}
}

func TestDecodeImagePayloadBareBase64DefaultsToPNG(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})

	_, contentType, err := DecodeImagePayload(payload)
	if err != nil {
		t.Fatalf("DecodeImagePayload returned error: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png fallback, got %q", contentType)
	}
}

func TestDecodeImagePayloadRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"not base64":       "!!!not-base64!!!",
		"data url no body": "data:image/png;base64",
		"unknown media":    "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
	}
	for name, payload := range cases {
		if _, _, err := DecodeImagePayload(payload); !errors.Is(err, ErrImageInvalid) {
			t.Fatalf("%s: expected ErrImageInvalid, got %v", name, err)
		}
	}
}

func TestDecodeImagePayloadRejectsOversized(t *testing.T) {
	payload := strings.Repeat("A", maxImageBytes*2)
	if _, _, err := DecodeImagePayload(payload); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	url := PublicURL("shop-images", "products/abc.png")
	if url != "https://storage.googleapis.com/shop-images/products/abc.png" {
		t.Fatalf("unexpected public url %q", url)
	}
}
