package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirBucket stores objects as files under a root directory. Keys map to
// relative paths.
type DirBucket struct {
	root string
}

func NewDirBucket(root string) (*DirBucket, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating bucket dir %s: %w", root, err)
	}
	return &DirBucket{root: root}, nil
}

func (b *DirBucket) path(key string) (string, error) {
	p := filepath.Join(b.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(b.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("key %q escapes bucket root", key)
	}
	return p, nil
}

func (b *DirBucket) Put(_ context.Context, key string, body []byte, _ string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("dir put %s: %w", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("dir put %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("dir put %s: %w", key, err)
	}
	return nil
}

func (b *DirBucket) Get(_ context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dir get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dir get %s: %w", key, err)
	}
	return body, nil
}

// List walks the root and returns slash-separated keys under prefix.
func (b *DirBucket) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dir list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}
