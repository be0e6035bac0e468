package core

import (
	"context"
	"io"
)

type (
	// File is an uploaded file.
	File struct {
		Name        string
		ContentType string
		Size        int64
		Body        io.Reader
	}

	// ObjectStore stores files in buckets and serves them from public URLs.
	ObjectStore interface {
		// Put uploads body under bucket/key and returns its public URL.
		Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error)
		Delete(ctx context.Context, bucket, key string) error
	}
)
