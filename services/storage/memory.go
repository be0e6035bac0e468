package storagesvc

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
)

// MemoryStore keeps objects in memory. Used in DEV and tests.
type MemoryStore struct {
	publicBaseURL string

	mu      sync.RWMutex
	objects map[string][]byte // {bucket/key: content}
}

var _ core.ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	if publicBaseURL == "" {
		publicBaseURL = "http://localhost/storage"
	}
	return &MemoryStore{publicBaseURL: publicBaseURL, objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", errors.Wrapf(err, "reading %s/%s", bucket, key)
	}
	s.mu.Lock()
	s.objects[bucket+"/"+key] = buf.Bytes()
	s.mu.Unlock()
	return publicURL(s.publicBaseURL, bucket, key), nil
}

func (s *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	delete(s.objects, bucket+"/"+key)
	s.mu.Unlock()
	return nil
}

// Get returns the content of an object.
func (s *MemoryStore) Get(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[bucket+"/"+key]
	return b, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
