// Package storage holds uploaded report files. Objects are addressed by key;
// the S3 store is used in deployed environments and the memory store in
// tests and local runs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

var (
	ErrNoObject     = errors.New("storage: no object")
	ErrObjectExists = errors.New("storage: object already exists")
)

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

type Store interface {
	// Put stores an object under key. Callers generate unique keys.
	Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) (*ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory. Signed URLs point at BaseURL.
type MemoryStore struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memObject
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, objects: make(map[string]memObject)}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.ReadSeeker, size int64, contentType string) (*ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, fmt.Errorf("object size mismatch: declared %d, read %d", size, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return nil, ErrObjectExists
	}
	s.objects[key] = memObject{data: data, contentType: contentType}
	return &ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, nil, ErrNoObject
	}
	info := &ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) SignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNoObject
	}
	q := url.Values{}
	q.Set("expires", time.Now().Add(expires).UTC().Format(time.RFC3339))
	return fmt.Sprintf("%s/%s?%s", s.BaseURL, url.PathEscape(key), q.Encode()), nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
