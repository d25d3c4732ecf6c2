package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	bytes.Buffer
	name        string
	contentType string
	closed      bool
	failClose   error
}

func (o *memObject) Close() error {
	o.closed = true
	return o.failClose
}

func memUploader(objects *[]*memObject, failClose error) *Uploader {
	return &Uploader{
		bucket: "safasajha-reports",
		newWriter: func(_ context.Context, object, contentType string) io.WriteCloser {
			o := &memObject{name: object, contentType: contentType, failClose: failClose}
			*objects = append(*objects, o)
			return o
		},
	}
}

func TestUploader_Upload(t *testing.T) {
	var objects []*memObject
	u := memUploader(&objects, nil)

	url, err := u.Upload(context.Background(), strings.NewReader("png-bytes"), "image/png", "reports/abc/")
	require.NoError(t, err)

	require.Len(t, objects, 1)
	obj := objects[0]
	assert.Regexp(t, regexp.MustCompile(`^reports/abc/[0-9a-f-]{36}\.png$`), obj.name)
	assert.Equal(t, "image/png", obj.contentType)
	assert.Equal(t, "png-bytes", obj.String())
	assert.True(t, obj.closed)
	assert.Equal(t, "https://storage.googleapis.com/safasajha-reports/"+obj.name, url)
}

func TestUploader_RejectsUnsupportedType(t *testing.T) {
	var objects []*memObject
	u := memUploader(&objects, nil)

	_, err := u.Upload(context.Background(), strings.NewReader("%PDF"), "application/pdf", "reports/abc")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Empty(t, objects)
}

func TestUploader_CloseFailure(t *testing.T) {
	var objects []*memObject
	u := memUploader(&objects, errors.New("precondition failed"))

	_, err := u.Upload(context.Background(), strings.NewReader("gif"), "image/gif", "reports/abc")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	for contentType, want := range map[string]string{
		"image/png":  "png",
		"IMAGE/JPEG": "jpeg",
		"image/jpg":  "jpeg",
		"image/gif":  "gif",
	} {
		got, ok := Extension(contentType)
		assert.True(t, ok, contentType)
		assert.Equal(t, want, got)
	}
	_, ok := Extension("image/webp")
	assert.False(t, ok)
}
