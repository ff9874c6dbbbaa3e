// Package objstore talks to the external binary object store that keeps
// station schema images, advertisement photos and contract documents. The
// service only persists the returned reference; storage mechanics live on
// the other side of this client.
package objstore

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	// Put uploads data under bucket with the original filename's extension
	// preserved and returns the stored-object reference.
	Put(ctx context.Context, bucket, filename, contentType string, data []byte) (string, error)
}

// HTTPStore uploads objects with a PUT to {base}/{bucket}/{object}.
type HTTPStore struct {
	client *resty.Client
	logger *zap.Logger
}

func NewHTTPStore(baseURL, token string, logger *zap.Logger) *HTTPStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HTTPStore{client: client, logger: logger}
}

func (s *HTTPStore) Put(ctx context.Context, bucket, filename, contentType string, data []byte) (string, error) {
	ref := objectRef(bucket, filename)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put("/" + ref)
	if err != nil {
		return "", fmt.Errorf("object store put %s: %w", ref, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("object store put %s: status %d", ref, resp.StatusCode())
	}

	s.logger.Info("object stored",
		zap.String("ref", ref),
		zap.Int("size", len(data)),
	)
	return ref, nil
}

// MemoryStore keeps objects in a map. Used when no object store is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}}
}

func (s *MemoryStore) Put(_ context.Context, bucket, filename, _ string, data []byte) (string, error) {
	ref := objectRef(bucket, filename)
	s.mu.Lock()
	s.objects[ref] = append([]byte(nil), data...)
	s.mu.Unlock()
	return ref, nil
}

// Get is a test helper for reading back what Put stored.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[ref]
	return b, ok
}

// objectRef builds a collision-free object name keeping the original
// extension so stored files stay recognizable.
func objectRef(bucket, filename string) string {
	return bucket + "/" + uuid.NewString() + path.Ext(filename)
}
