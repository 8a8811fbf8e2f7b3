package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/linkmemory/internal/card"
)

func TestNewAPKGGenerator(t *testing.T) {
	gen := NewAPKGGenerator("Test Deck")

	if gen.deckName != "Test Deck" {
		t.Errorf("Expected deck name 'Test Deck', got '%s'", gen.deckName)
	}
	if len(gen.cards) != 0 {
		t.Errorf("Expected empty cards slice, got %d cards", len(gen.cards))
	}
	if gen.modelID == gen.deckID {
		t.Error("Model and deck IDs must differ")
	}
}

func TestCollectMediaDeduplicates(t *testing.T) {
	gen := NewAPKGGenerator("Test Deck")
	for _, sc := range []card.StudyCard{
		testStudyCard("abandon", true),
		testStudyCard("abandon", true),
		testStudyCard("absolute", false),
	} {
		c, _ := FromStudyCard(sc)
		gen.AddCard(c)
	}

	gen.collectMedia()
	if len(gen.media) != 1 {
		t.Fatalf("Expected 1 media entry, got %d", len(gen.media))
	}
	if gen.media[0].filename != "linkmemory_abandon.png" {
		t.Errorf("Unexpected media filename %q", gen.media[0].filename)
	}
}

func TestGenerateAPKG(t *testing.T) {
	tempDir := t.TempDir()
	outputPath := filepath.Join(tempDir, "out", "test.apkg")

	gen := NewGenerator(nil)
	gen.AddStudyCards([]card.StudyCard{
		testStudyCard("abandon", true),
		testStudyCard("absolute", false),
	})

	if err := gen.GenerateAPKG(outputPath, "河南专升本英语"); err != nil {
		t.Fatalf("GenerateAPKG() error = %v", err)
	}

	reader, err := zip.OpenReader(outputPath)
	if err != nil {
		t.Fatalf("Generated file is not a valid zip: %v", err)
	}
	defer reader.Close()

	entries := make(map[string]*zip.File)
	for _, f := range reader.File {
		entries[f.Name] = f
	}
	for _, name := range []string{"collection.anki2", "media", "0"} {
		if entries[name] == nil {
			t.Errorf("Missing %s in package", name)
		}
	}

	mediaJSON := readZipEntry(t, entries["media"])
	var mapping map[string]string
	if err := json.Unmarshal(mediaJSON, &mapping); err != nil {
		t.Fatalf("Invalid media mapping: %v", err)
	}
	if mapping["0"] != "linkmemory_abandon.png" {
		t.Errorf("Unexpected media mapping %v", mapping)
	}
	if string(readZipEntry(t, entries["0"])) != "png-bytes" {
		t.Error("Media file content mismatch")
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := os.WriteFile(dbPath, readZipEntry(t, entries["collection.anki2"]), 0644); err != nil {
		t.Fatal(err)
	}
	verifyCollection(t, dbPath)
}

func verifyCollection(t *testing.T, dbPath string) {
	t.Helper()

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var noteCount, cardCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&noteCount); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cardCount); err != nil {
		t.Fatal(err)
	}
	if noteCount != 2 || cardCount != 4 {
		t.Errorf("Expected 2 notes and 4 cards, got %d and %d", noteCount, cardCount)
	}

	var flds, tags string
	if err := db.QueryRow("SELECT flds, tags FROM notes WHERE sfld = ?", "abandon").Scan(&flds, &tags); err != nil {
		t.Fatalf("Note for abandon not found: %v", err)
	}
	fields := strings.Split(flds, "\x1f")
	if len(fields) != len(FieldNames) {
		t.Fatalf("Expected %d fields, got %d", len(FieldNames), len(fields))
	}
	if fields[3] != "阿班把蛋扔了，放弃了早餐" {
		t.Errorf("Unexpected mnemonic field %q", fields[3])
	}
	if fields[6] != `<img src="linkmemory_abandon.png">` {
		t.Errorf("Unexpected image field %q", fields[6])
	}
	if !strings.Contains(tags, "difficulty::medium") {
		t.Errorf("Unexpected tags %q", tags)
	}

	var models, decks string
	if err := db.QueryRow("SELECT models, decks FROM col").Scan(&models, &decks); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(models, NoteTypeName) {
		t.Error("Note type missing from collection")
	}
	if !strings.Contains(decks, "河南专升本英语") {
		t.Error("Deck name missing from collection")
	}
}

func readZipEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()
	if f == nil {
		t.Fatal("missing zip entry")
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFieldChecksum(t *testing.T) {
	if fieldChecksum("abandon") != fieldChecksum("<b>abandon</b>") {
		t.Error("Checksum must ignore HTML tags")
	}
	if fieldChecksum("abandon") == fieldChecksum("absolute") {
		t.Error("Different words should have different checksums")
	}
}
