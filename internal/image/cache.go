package image

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
)

var cacheExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Cache stores generated images on disk keyed by backend, model and content
type Cache struct {
	dir string
}

// DefaultCacheDir returns ~/.cache/linkmemory/images
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "linkmemory", "images")
	}
	return filepath.Join(os.TempDir(), "linkmemory", "images")
}

// NewCache creates the cache directory if needed
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root
func (c *Cache) Dir() string {
	return c.dir
}

// Key hashes everything that influences the generated picture
func (c *Cache) Key(backend, model, word, mnemonic string) string {
	h := md5.New()
	for _, part := range []string{backend, model, word, mnemonic} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// path splits the hash into a two-character subdirectory
func (c *Cache) path(key, ext string) string {
	return filepath.Join(c.dir, key[:2], key[2:]+ext)
}

// Load returns the cached payload for key, if any
func (c *Cache) Load(key string) (*Payload, bool) {
	for ext, mimeType := range cacheExtensions {
		data, err := os.ReadFile(c.path(key, ext))
		if err == nil && len(data) > 0 {
			return &Payload{Data: data, MIMEType: mimeType}, true
		}
	}
	return nil, false
}

// Store writes the payload under key
func (c *Cache) Store(key string, p *Payload) error {
	file := c.path(key, p.Extension())
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return os.WriteFile(file, p.Data, 0644)
}

// Clear removes all cached images
func (c *Cache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Stats returns the number and total size of cached images
func (c *Cache) Stats() (fileCount int, totalSize int64, err error) {
	err = filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			fileCount++
			totalSize += info.Size()
		}
		return nil
	})
	return fileCount, totalSize, err
}
