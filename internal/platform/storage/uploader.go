package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

const maxImageBytes = 10 << 20

var (
	// ErrImageInvalid signals that the payload was not a decodable image.
	ErrImageInvalid = errors.New("storage: image payload invalid")
	// ErrImageTooLarge signals that the decoded image exceeds the size cap.
	ErrImageTooLarge = errors.New("storage: image payload too large")
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageUploader stores browser-submitted images in a Cloud Storage bucket and
// returns their public URLs.
type ImageUploader struct {
	client *gcs.Client
	bucket string
	prefix string
	now    func() time.Time
}

// UploaderOption customises ImageUploader behaviour.
type UploaderOption func(*ImageUploader)

// WithObjectPrefix sets the object name prefix inside the bucket.
func WithObjectPrefix(prefix string) UploaderOption {
	return func(u *ImageUploader) {
		u.prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	}
}

// NewImageUploader constructs an ImageUploader backed by the provided client.
func NewImageUploader(client *gcs.Client, bucket string, opts ...UploaderOption) (*ImageUploader, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	uploader := &ImageUploader{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: "products",
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(uploader)
		}
	}
	return uploader, nil
}

// Upload decodes the base64 image payload, writes it to the bucket, and
// returns the public object URL.
func (u *ImageUploader) Upload(ctx context.Context, payload string) (string, error) {
	data, contentType, err := DecodeImagePayload(payload)
	if err != nil {
		return "", err
	}

	object := u.objectName(contentType)
	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=86400"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage: write object %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize object %s: %w", object, err)
	}

	return PublicURL(u.bucket, object), nil
}

func (u *ImageUploader) objectName(contentType string) string {
	id := ulid.MustNew(ulid.Timestamp(u.now()), ulid.DefaultEntropy()).String()
	ext := imageExtensions[contentType]
	if ext == "" {
		ext = "bin"
	}
	name := fmt.Sprintf("%s.%s", strings.ToLower(id), ext)
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}

// DecodeImagePayload decodes a data URL or bare base64 image payload and
// returns the raw bytes with the detected content type.
func DecodeImagePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", ErrImageInvalid
	}

	contentType := "image/png"
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, "", ErrImageInvalid
		}
		header := payload[len("data:"):idx]
		payload = payload[idx+1:]

		header = strings.TrimSuffix(header, ";base64")
		if header != "" {
			if _, ok := imageExtensions[strings.ToLower(header)]; !ok {
				return nil, "", ErrImageInvalid
			}
			contentType = strings.ToLower(header)
		}
	}

	if len(payload) > maxImageBytes*4/3+4 {
		return nil, "", ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrImageInvalid
	}
	if len(data) == 0 {
		return nil, "", ErrImageInvalid
	}
	if len(data) > maxImageBytes {
		return nil, "", ErrImageTooLarge
	}
	return data, contentType, nil
}

// PublicURL renders the canonical public URL for an object in the bucket.
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
}
