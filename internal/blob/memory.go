package blob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryBucket keeps objects in process memory. Used for dry runs and tests.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	body        []byte
	contentType string
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{objects: make(map[string]memoryObject)}
}

func (b *MemoryBucket) Put(_ context.Context, key string, body []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(body))
	copy(cp, body)
	b.objects[key] = memoryObject{body: cp, contentType: contentType}
	return nil
}

func (b *MemoryBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("memory get %s: %w", key, ErrNotFound)
	}
	return obj.body, nil
}

// List returns the keys under prefix in lexical order.
func (b *MemoryBucket) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ContentType returns the content type an object was stored with.
func (b *MemoryBucket) ContentType(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.objects[key].contentType
}
