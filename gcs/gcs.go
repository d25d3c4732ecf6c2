// Package gcs stores report images in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/apex/log"
	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported image type")

const MaxImageSize = 5 << 20

type Uploader struct {
	client    *storage.Client
	bucket    string
	newWriter func(ctx context.Context, object, contentType string) io.WriteCloser
}

// New connects to GCS with application default credentials and checks the bucket.
func New(ctx context.Context, bucket string) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to Google Cloud Storage: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("access bucket %s: %w", bucket, err)
	}
	log.WithField("bucket", bucket).Info("Google Cloud Storage ready")

	u := &Uploader{client: client, bucket: bucket}
	u.newWriter = func(ctx context.Context, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
	return u, nil
}

// Extension maps an accepted image content type to its file extension.
func Extension(contentType string) (string, bool) {
	switch strings.ToLower(contentType) {
	case "image/png":
		return "png", true
	case "image/jpeg", "image/jpg":
		return "jpeg", true
	case "image/gif":
		return "gif", true
	}
	return "", false
}

// Upload writes r under folder with a random name and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, r io.Reader, contentType, folder string) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", ErrUnsupportedType
	}

	object := fmt.Sprintf("%s/%s.%s", strings.Trim(folder, "/"), uuid.NewString(), ext)
	w := u.newWriter(ctx, object, contentType)
	if _, err := io.Copy(w, io.LimitReader(r, MaxImageSize+1)); err != nil {
		w.Close()
		return "", fmt.Errorf("copy %s to GCS: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish %s: %w", object, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, object)
	log.WithField("object", object).Info("image uploaded")
	return url, nil
}

func (u *Uploader) Close() error {
	if u.client == nil {
		return nil
	}
	return u.client.Close()
}
