package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"codeberg.org/snonux/linkmemory/internal"
	"codeberg.org/snonux/linkmemory/internal/anki"
	"codeberg.org/snonux/linkmemory/internal/archive"
	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/cli"
	"codeberg.org/snonux/linkmemory/internal/generator"
	"codeberg.org/snonux/linkmemory/internal/guard"
	"codeberg.org/snonux/linkmemory/internal/image"
	"codeberg.org/snonux/linkmemory/internal/models"
	"codeberg.org/snonux/linkmemory/internal/server"
	"codeberg.org/snonux/linkmemory/internal/session"
	"codeberg.org/snonux/linkmemory/internal/study"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

var (
	// ErrMissingAPIKey is returned when the selected provider has no key
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnknownProvider is returned for providers other than gemini and openai
	ErrUnknownProvider = errors.New("unknown provider")
)

// Processor holds the resolved backends and settings for one run
type Processor struct {
	flags        *cli.Flags
	logger       *slog.Logger
	catalog      *wordpool.Catalog
	cardBackend  generator.Backend
	imageBackend image.Backend // nil when images are skipped
}

// NewProcessor resolves the word catalog and AI backends from flags
func NewProcessor(ctx context.Context, flags *cli.Flags, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog, err := loadCatalog(flags, logger)
	if err != nil {
		return nil, err
	}

	cards, images, err := newBackends(ctx, flags)
	if err != nil {
		return nil, err
	}
	return NewProcessorWithBackends(flags, catalog, cards, images, logger), nil
}

// NewProcessorWithBackends creates a processor on preconfigured backends.
// imageBackend may be nil.
func NewProcessorWithBackends(flags *cli.Flags, catalog *wordpool.Catalog, cardBackend generator.Backend, imageBackend image.Backend, logger *slog.Logger) *Processor {
	if catalog == nil {
		catalog = wordpool.NewCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if flags.SkipImages {
		imageBackend = nil
	}
	return &Processor{
		flags:        flags,
		logger:       logger,
		catalog:      catalog,
		cardBackend:  cardBackend,
		imageBackend: imageBackend,
	}
}

// Catalog returns the word pools in use
func (p *Processor) Catalog() *wordpool.Catalog {
	return p.catalog
}

// loadCatalog returns the built-in pools, extended by --words when given.
// The file extends the category selected with --category.
func loadCatalog(flags *cli.Flags, logger *slog.Logger) (*wordpool.Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := wordpool.NewCatalog()
	if flags.WordsFile == "" {
		return catalog, nil
	}

	category, err := wordpool.ParseCategory(flags.Category)
	if err != nil {
		return nil, err
	}
	words, err := wordpool.ReadWordFile(flags.WordsFile)
	if err != nil {
		return nil, err
	}
	added := catalog.Extend(category, words)
	logger.Info("extended word pool", "category", string(category), "file", flags.WordsFile,
		"added", added, "size", catalog.Size(category))
	return catalog, nil
}

func newBackends(ctx context.Context, flags *cli.Flags) (generator.Backend, image.Backend, error) {
	switch strings.ToLower(flags.Provider) {
	case "gemini", "":
		client, err := newGeminiClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		cards := generator.NewGeminiBackend(client, &generator.GeminiConfig{
			Model:       flags.GeminiModel,
			Temperature: float32(flags.Temperature),
		})
		return cards, image.NewGeminiBackend(client, flags.GeminiImageModel), nil

	case "openai":
		key := cli.GetOpenAIKey()
		if key == "" {
			return nil, nil, fmt.Errorf("%w: set OPENAI_API_KEY or openai.api_key", ErrMissingAPIKey)
		}
		cards := generator.NewOpenAIBackend(&generator.OpenAIConfig{
			APIKey:      key,
			Model:       flags.OpenAIModel,
			Temperature: float32(flags.Temperature),
		})
		images := image.NewOpenAIBackend(&image.OpenAIConfig{
			APIKey: key,
			Model:  flags.OpenAIImageModel,
		})
		return cards, images, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, flags.Provider)
	}
}

func newGeminiClient(ctx context.Context) (*genai.Client, error) {
	key := cli.GetGeminiKey()
	if key == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or gemini.api_key", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func (p *Processor) guardOptions() guard.Options {
	opts := guard.DefaultOptions()
	opts.RequestsPerMinute = p.flags.RequestsPerMinute
	opts.Logger = p.logger
	return opts
}

// NewSession builds a controller on the configured backends. The caller
// closes it.
func (p *Processor) NewSession(ctx context.Context) *session.Controller {
	backend := generator.NewGuardedBackend(p.cardBackend, p.guardOptions())
	gen := generator.New(p.catalog, backend, &generator.Options{Logger: p.logger})

	var images session.ImageEnricher
	if p.imageBackend != nil {
		gopts := p.guardOptions()
		images = image.NewEnricher(p.imageBackend, &image.Options{
			Cache:  p.imageCache(),
			Guard:  &gopts,
			Logger: p.logger,
		})
	}

	return session.New(ctx, gen, images, &session.Options{
		BatchSize:         p.flags.BatchSize,
		PrefetchThreshold: p.flags.PrefetchThreshold,
		AdvanceDelay:      p.flags.AdvanceDelay,
		Logger:            p.logger,
	})
}

// imageCache returns nil when caching is disabled or unavailable
func (p *Processor) imageCache() *image.Cache {
	if p.flags.NoImageCache {
		return nil
	}
	dir := p.flags.ImageCacheDir
	if dir == "" {
		dir = image.DefaultCacheDir()
	}
	cache, err := image.NewCache(dir)
	if err != nil {
		p.logger.Warn("image cache disabled", "dir", dir, "error", err)
		return nil
	}
	return cache
}

// RunStudy runs the terminal front-end on in and out
func (p *Processor) RunStudy(ctx context.Context, in io.Reader, out io.Writer) error {
	ctrl := p.NewSession(ctx)
	defer ctrl.Close()

	opts := &study.Options{
		Catalog: p.catalog,
		Export:  p.ExportCards,
	}
	if p.flags.Category != "" {
		category, err := wordpool.ParseCategory(p.flags.Category)
		if err != nil {
			return err
		}
		opts.InitialCategory = category
	}

	if err := study.New(ctrl, in, out, opts).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return p.exportOnExit(ctrl, out)
}

// RunServer serves the HTTP API on addr until ctx is cancelled
func (p *Processor) RunServer(ctx context.Context, addr string, out io.Writer) error {
	if !p.flags.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctrl := p.NewSession(ctx)
	defer ctrl.Close()

	srv := server.New(ctrl, p.catalog, &server.Options{Logger: p.logger})
	fmt.Fprintf(out, "Serving LinkMemory API on http://%s\n", addr)
	serveErr := srv.ListenAndServe(ctx, addr)
	exportErr := p.exportOnExit(ctrl, out)
	if serveErr != nil {
		return errors.Join(fmt.Errorf("server failed: %w", serveErr), exportErr)
	}
	return exportErr
}

// exportOnExit writes the cards shown during the session when --anki was
// given
func (p *Processor) exportOnExit(ctrl *session.Controller, out io.Writer) error {
	if !p.flags.GenerateAnki {
		return nil
	}
	cards := ctrl.Seen()
	if len(cards) == 0 {
		fmt.Fprintf(out, "No cards studied, skipping Anki export\n")
		return nil
	}

	fmt.Fprintf(out, "\nGenerating Anki import file...\n")
	path, err := p.ExportCards(cards)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Anki file created: %s\n", path)
	return nil
}

// ExportCards writes cards as an APKG package, or a CSV with media files
// when --anki-csv is set, into the output directory
func (p *Processor) ExportCards(cards []card.StudyCard) (string, error) {
	outputDir := p.flags.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	csvPath := filepath.Join(outputDir, "linkmemory_import.csv")
	gen := anki.NewGenerator(&anki.GeneratorOptions{
		OutputPath:     csvPath,
		MediaFolder:    outputDir,
		IncludeHeaders: true,
		Logger:         p.logger,
	})
	gen.AddStudyCards(cards)

	var outputPath string
	if p.flags.AnkiCSV {
		outputPath = csvPath
		if err := gen.GenerateCSV(); err != nil {
			return "", fmt.Errorf("failed to generate CSV: %w", err)
		}
	} else {
		deckName := p.flags.DeckName
		if deckName == "" {
			deckName = anki.NoteTypeName
		}
		outputPath = filepath.Join(outputDir, internal.SanitizeFilename(deckName)+".apkg")
		if err := gen.GenerateAPKG(outputPath, deckName); err != nil {
			return "", fmt.Errorf("failed to generate APKG: %w", err)
		}
	}

	total, withImages := gen.Stats()
	p.logger.Info("anki export written", "path", outputPath, "cards", total, "with_images", withImages)
	return outputPath, nil
}

// ListModels prints the models of provider, or of every provider with a
// configured key when provider is empty
func ListModels(ctx context.Context, provider string, out io.Writer) error {
	var client *genai.Client
	if cli.GetGeminiKey() != "" {
		c, err := newGeminiClient(ctx)
		if err != nil {
			return err
		}
		client = c
	}

	lister := models.NewLister(cli.GetOpenAIKey(), client)
	lister.SetOutput(out)
	return lister.ListAvailableModels(ctx, strings.ToLower(provider))
}

// ArchiveExports moves the output directory into a timestamped archive
func ArchiveExports(flags *cli.Flags, out io.Writer) error {
	path, err := archive.Dir(flags.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to archive exports: %w", err)
	}
	fmt.Fprintf(out, "Exports archived to: %s\n", path)
	return nil
}

// ClearImageCache deletes the cached illustrations
func ClearImageCache(flags *cli.Flags, out io.Writer) error {
	dir := flags.ImageCacheDir
	if dir == "" {
		dir = image.DefaultCacheDir()
	}
	cache, err := image.NewCache(dir)
	if err != nil {
		return err
	}

	count, size, err := cache.Stats()
	if err != nil {
		return fmt.Errorf("failed to read image cache: %w", err)
	}
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear image cache: %w", err)
	}
	fmt.Fprintf(out, "Removed %d cached images (%.1f MB) from %s\n", count, float64(size)/(1024*1024), cache.Dir())
	return nil
}
