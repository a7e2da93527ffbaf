package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rohits-web03/sharegate/internal/share"
)

// MemoryBlobStore is an in-memory share.BlobStore.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	FailDelete bool
}

var _ share.BlobStore = (*MemoryBlobStore)(nil)

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: map[string][]byte{}}
}

func (b *MemoryBlobStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

// PresignGet returns a fake URL recording the key, disposition and ttl.
func (b *MemoryBlobStore) PresignGet(_ context.Context, key, _ string, inline bool, ttl time.Duration) (string, error) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	return fmt.Sprintf("https://blobs.test/%s?disposition=%s&ttl=%s", key, disposition, ttl), nil
}

func (b *MemoryBlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailDelete {
		return ErrInjected
	}
	delete(b.objects, key)
	return nil
}

// Object returns the stored bytes for key.
func (b *MemoryBlobStore) Object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

// Len returns the number of stored objects.
func (b *MemoryBlobStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
