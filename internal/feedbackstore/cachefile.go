package feedbackstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CacheFile persists the last spreadsheet id the locator created. There is
// no cross-process locking; a torn write is caught by verification on read.
type CacheFile struct {
	path string
}

// NewCacheFile returns a cache at path. An empty path disables the tier.
func NewCacheFile(path string) *CacheFile {
	return &CacheFile{path: path}
}

// Path returns the file location.
func (c *CacheFile) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Read returns the cached id, or "" when the file is absent or empty.
func (c *CacheFile) Read() (string, error) {
	if c == nil || c.path == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read cache file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write stores id without a trailing newline.
func (c *CacheFile) Write(id string) error {
	if c == nil || c.path == "" {
		return nil
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	if err := os.WriteFile(c.path, []byte(strings.TrimSpace(id)), 0o600); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Evict removes the file if it still holds id. A file pointing elsewhere
// was rewritten by someone else and is left alone.
func (c *CacheFile) Evict(id string) error {
	current, err := c.Read()
	if err != nil {
		return err
	}
	if current == "" || current != id {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
