// Package photo processes pet photo uploads: decode, thumbnail, and
// object storage.
package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
)

const (
	// maxUploadBytes bounds a single upload before decoding.
	maxUploadBytes = 10 << 20

	thumbnailSize    = 300
	thumbnailQuality = 85
)

// Upload is the result of processing one photo.
type Upload struct {
	Key          string
	URL          string
	ThumbnailURL string
}

// Processor decodes uploads, renders thumbnails, and stores both
// renditions.
type Processor struct {
	store ObjectStore
}

// NewProcessor returns a Processor writing to store.
func NewProcessor(store ObjectStore) (*Processor, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &Processor{store: store}, nil
}

// Process validates and stores one uploaded image. The original is kept
// as submitted; the thumbnail is re-encoded as JPEG.
func (p *Processor) Process(ctx context.Context, data []byte) (Upload, error) {
	if len(data) == 0 {
		return Upload{}, apperrors.New(apperrors.CodePhotoEmptyContents, "photo is empty")
	}
	if len(data) > maxUploadBytes {
		return Upload{}, apperrors.New(apperrors.CodePhotoTooLarge, "photo exceeds the upload limit")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Upload{}, apperrors.Wrap(apperrors.CodePhotoInvalidImage, "photo is not a supported image", err)
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)
	var thumbBuf bytes.Buffer
	if err := jpeg.Encode(&thumbBuf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return Upload{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	key := uuid.NewString()
	url, err := p.store.Put(ctx, key+"."+format, "image/"+format, data)
	if err != nil {
		return Upload{}, apperrors.Wrap(apperrors.CodePhotoUploadFailed, "photo upload failed", err)
	}
	thumbURL, err := p.store.Put(ctx, key+"_thumb.jpg", "image/jpeg", thumbBuf.Bytes())
	if err != nil {
		return Upload{}, apperrors.Wrap(apperrors.CodePhotoUploadFailed, "thumbnail upload failed", err)
	}
	return Upload{Key: key, URL: url, ThumbnailURL: thumbURL}, nil
}
