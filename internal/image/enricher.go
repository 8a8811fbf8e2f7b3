package image

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/snonux/linkmemory/internal/guard"
)

// Options configures an Enricher
type Options struct {
	MaxSizeBytes int64          // 0 selects DefaultMaxSizeBytes
	Cache        *Cache         // nil disables caching
	Guard        *guard.Options // nil calls the backend directly
	Logger       *slog.Logger
}

// Enricher turns a word and its mnemonic into an illustration data URL
type Enricher struct {
	backend Backend
	maxSize int64
	cache   *Cache
	guard   *guard.Guard
	logger  *slog.Logger
}

// NewEnricher creates an enricher for backend
func NewEnricher(backend Backend, opts *Options) *Enricher {
	if opts == nil {
		opts = &Options{}
	}
	e := &Enricher{
		backend: backend,
		maxSize: opts.MaxSizeBytes,
		cache:   opts.Cache,
		logger:  opts.Logger,
	}
	if e.maxSize <= 0 {
		e.maxSize = DefaultMaxSizeBytes
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if opts.Guard != nil {
		gopts := *opts.Guard
		gopts.Logger = e.logger
		e.guard = guard.New(backend.Name()+"-images", gopts)
	}
	return e
}

// EnrichImage generates the illustration. Any failure is logged and reported
// as ok=false; the caller keeps the card without an image.
func (e *Enricher) EnrichImage(ctx context.Context, word, mnemonic string) (string, bool) {
	logger := e.logger.With("backend", e.backend.Name(), "word", word)

	var key string
	if e.cache != nil {
		key = e.cache.Key(e.backend.Name(), e.backend.Model(), word, mnemonic)
		if p, ok := e.cache.Load(key); ok {
			logger.Debug("image cache hit", "bytes", len(p.Data))
			return p.DataURL(), true
		}
	}

	start := time.Now()
	p, err := e.generate(ctx, BuildPrompt(word, mnemonic))
	if err != nil {
		logger.Warn("image generation failed", "error", err)
		return "", false
	}

	if e.cache != nil {
		if err := e.cache.Store(key, p); err != nil {
			logger.Warn("failed to cache image", "error", err)
		}
	}

	logger.Info("image generated", "bytes", len(p.Data), "mime", p.MIMEType,
		"duration_ms", time.Since(start).Milliseconds())
	return p.DataURL(), true
}

func (e *Enricher) generate(ctx context.Context, prompt string) (*Payload, error) {
	var (
		p   *Payload
		err error
	)
	if e.guard != nil {
		var res interface{}
		res, err = e.guard.Do(ctx, func() (interface{}, error) {
			return e.backend.GenerateImage(ctx, prompt)
		})
		p, _ = res.(*Payload)
	} else {
		p, err = e.backend.GenerateImage(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	if p == nil || len(p.Data) == 0 {
		return nil, ErrNoImage
	}
	if int64(len(p.Data)) > e.maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(p.Data), e.maxSize)
	}
	if p.MIMEType == "" {
		p.MIMEType = DefaultMIMEType
	}
	return p, nil
}
