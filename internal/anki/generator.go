package anki

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/linkmemory/internal"
	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/image"
)

// Card is one exported note. Image holds decoded bytes, not a data URL.
type Card struct {
	Word        string
	Phonetic    string
	Definition  string
	Mnemonic    string
	Example     string
	Translation string
	Difficulty  string
	Image       *image.Payload
}

// FromStudyCard converts a session card. An image that cannot be decoded is
// dropped and reported through the returned error; the card is still usable.
func FromStudyCard(sc card.StudyCard) (Card, error) {
	c := Card{
		Word:        sc.Word,
		Phonetic:    sc.Phonetic,
		Definition:  sc.Definition,
		Mnemonic:    sc.Mnemonic,
		Example:     sc.ExampleSentence,
		Translation: sc.ExampleTranslation,
		Difficulty:  string(sc.Difficulty),
	}
	if !sc.HasImage() {
		return c, nil
	}

	p, err := image.DecodeDataURL(sc.Image)
	if err != nil {
		return c, fmt.Errorf("image for %q: %w", sc.Word, err)
	}
	c.Image = p
	return c, nil
}

// MediaFilename is the name the card's image is stored under
func (c *Card) MediaFilename() string {
	if c.Image == nil {
		return ""
	}
	return "linkmemory_" + internal.SanitizeFilename(c.Word) + c.Image.Extension()
}

// GeneratorOptions configures the CSV export
type GeneratorOptions struct {
	OutputPath     string // Output CSV file path
	MediaFolder    string // Folder the images are written to
	IncludeHeaders bool   // Include CSV headers
	Logger         *slog.Logger
}

// DefaultGeneratorOptions returns sensible defaults
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     "linkmemory_import.csv",
		MediaFolder:    ".",
		IncludeHeaders: true,
	}
}

// Generator collects cards and writes Anki import files
type Generator struct {
	options *GeneratorOptions
	cards   []Card
	logger  *slog.Logger
}

// NewGenerator creates a new Anki generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		options: options,
		cards:   make([]Card, 0),
		logger:  logger,
	}
}

// AddCard adds a card to the collection
func (g *Generator) AddCard(c Card) {
	g.cards = append(g.cards, c)
}

// AddStudyCards converts and adds session cards in order
func (g *Generator) AddStudyCards(cards []card.StudyCard) {
	for _, sc := range cards {
		c, err := FromStudyCard(sc)
		if err != nil {
			g.logger.Warn("exporting card without image", "word", sc.Word, "error", err)
		}
		g.AddCard(c)
	}
}

// GetCards returns the collected cards
func (g *Generator) GetCards() []Card {
	return g.cards
}

// GenerateCSV writes the CSV file and the image files next to it
func (g *Generator) GenerateCSV() error {
	if err := g.writeMedia(); err != nil {
		return err
	}

	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if g.options.IncludeHeaders {
		if err := writer.Write(FieldNames); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, c := range g.cards {
		if err := writer.Write(c.fields(imageTag(c.MediaFilename()))); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	return nil
}

// writeMedia stores every decoded image in the media folder
func (g *Generator) writeMedia() error {
	if g.options.MediaFolder == "" {
		return nil
	}
	for _, c := range g.cards {
		if c.Image == nil {
			continue
		}
		if err := os.MkdirAll(g.options.MediaFolder, 0755); err != nil {
			return fmt.Errorf("failed to create media folder: %w", err)
		}
		path := filepath.Join(g.options.MediaFolder, c.MediaFilename())
		if err := os.WriteFile(path, c.Image.Data, 0644); err != nil {
			return fmt.Errorf("failed to write image %s: %w", path, err)
		}
	}
	return nil
}

// GenerateAPKG creates a proper .apkg file for Anki import
func (g *Generator) GenerateAPKG(outputPath, deckName string) error {
	apkgGen := NewAPKGGenerator(deckName)
	for _, c := range g.cards {
		apkgGen.AddCard(c)
	}
	return apkgGen.GenerateAPKG(outputPath)
}

// Stats returns statistics about the card collection
func (g *Generator) Stats() (totalCards, withImages int) {
	totalCards = len(g.cards)
	for _, c := range g.cards {
		if c.Image != nil {
			withImages++
		}
	}
	return
}

// FieldNames are the note fields in order
var FieldNames = []string{"Word", "Phonetic", "Definition", "Mnemonic", "Example", "Translation", "Image"}

func (c *Card) fields(imageField string) []string {
	return []string{
		c.Word,
		c.Phonetic,
		c.Definition,
		c.Mnemonic,
		c.Example,
		c.Translation,
		imageField,
	}
}

func imageTag(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf(`<img src="%s">`, filename)
}

// tags renders the space separated tag list Anki stores per note
func (c *Card) tags() string {
	parts := []string{"linkmemory"}
	if c.Difficulty != "" {
		parts = append(parts, "difficulty::"+c.Difficulty)
	}
	return " " + strings.Join(parts, " ") + " "
}
