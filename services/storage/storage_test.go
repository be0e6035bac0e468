package storagesvc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/trezcool/uninotes/tests"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("http://storage.test")
	ctx := context.Background()

	url, err := s.Put(ctx, "notes", "1_week 1.pdf", strings.NewReader("%PDF"), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://storage.test/notes/1_week%201.pdf", url)

	content, ok := s.Get("notes", "1_week 1.pdf")
	assert.True(t, ok)
	assert.Equal(t, "%PDF", string(content))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "notes", "1_week 1.pdf"))
	assert.NoError(t, s.Delete(ctx, "notes", "missing"))
	assert.Equal(t, 0, s.Len())

	assert.Equal(t, "http://localhost/storage/avatars/a.png", publicURL(NewMemoryStore("").publicBaseURL, "avatars", "a.png"))
}

func TestNewS3Store(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig()

	_, err := NewS3Store(ctx, conf)
	assert.Error(t, err, "region is required")

	conf.Storage.Region = "eu-west-1"
	conf.Storage.AccessKeyID = "key"
	conf.Storage.SecretAccessKey = "secret"
	s, err := NewS3Store(ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, "http://storage.test/notes/a%20b.pdf", s.PublicURL("notes", "a b.pdf"))

	conf.Storage.PublicBaseURL = ""
	s, err = NewS3Store(ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.eu-west-1.amazonaws.com/avatars/a.png", s.PublicURL("avatars", "a.png"))

	conf.Storage.Endpoint = "http://minio:9000/"
	s, err = NewS3Store(ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/avatars/a.png", s.PublicURL("avatars", "a.png"))
}
