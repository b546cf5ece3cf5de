package blob

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store persists image bytes and hands back a reference to them.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (Ref, error)
}

// Uploader is implemented by pkg/aws.S3Store.
type Uploader interface {
	Key(name string) string
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// S3Store writes each image under a fresh uuid key and references it by public URL.
type S3Store struct {
	uploader Uploader
}

func NewS3Store(uploader Uploader) *S3Store {
	return &S3Store{uploader: uploader}
}

func (s *S3Store) Put(ctx context.Context, data []byte, contentType string) (Ref, error) {
	key := s.uploader.Key(uuid.NewString() + extension(contentType))
	url, err := s.uploader.Upload(ctx, key, data, contentType)
	if err != nil {
		return Ref{}, fmt.Errorf("upload image: %w", err)
	}
	return FromURL(url), nil
}

// InlineStore keeps images inside the reference itself. Used when no bucket is
// configured; the backend then stores the data URL verbatim.
type InlineStore struct{}

func (InlineStore) Put(_ context.Context, data []byte, contentType string) (Ref, error) {
	return FromBytes(data, contentType), nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}
