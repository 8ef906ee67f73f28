// Package storage keeps recipe images on local disk or in S3.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ImageStore persists image bytes under a key and resolves the key to a public URL.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var ErrInvalidImage = errors.New("invalid image data")

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// DecodeDataURI parses "data:image/png;base64,...." payloads sent by the web client.
// The declared type must be an image type and the decoded bytes must sniff as one; the
// sniffed type wins when the two disagree.
func DecodeDataURI(s string) (*Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: expected a base64 data URI", ErrInvalidImage)
	}

	declared := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"))
	if _, ok := extensions[declared]; !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, declared)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	sniffed := http.DetectContentType(data)
	ext, ok := extensions[sniffed]
	if !ok {
		return nil, fmt.Errorf("%w: content is %s, not an image", ErrInvalidImage, sniffed)
	}

	return &Image{Data: data, ContentType: sniffed, Ext: ext}, nil
}

// NewKey returns a fresh object key for a recipe image.
func NewKey(ext string) string {
	return path.Join("recipes", uuid.NewString()+ext)
}
