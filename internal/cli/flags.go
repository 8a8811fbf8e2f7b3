package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	OutputDir  string
	Provider   string
	Category   string
	WordsFile  string
	Serve      string
	ListModels bool
	Archive    bool
	Verbose    bool

	// Session flags
	BatchSize         int
	PrefetchThreshold int
	AdvanceDelay      time.Duration

	// Generation flags
	Temperature       float64
	RequestsPerMinute int
	GeminiModel       string
	OpenAIModel       string

	// Image flags
	SkipImages       bool
	NoImageCache     bool
	ImageCacheDir    string
	GeminiImageModel string
	OpenAIImageModel string
	ClearImageCache  bool

	// Anki flags
	GenerateAnki bool
	AnkiCSV      bool
	DeckName     string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Provider:          "gemini",
		Category:          "henan-zsb",
		BatchSize:         5,
		PrefetchThreshold: 2,
		AdvanceDelay:      200 * time.Millisecond,
		Temperature:       1.1,
		RequestsPerMinute: 30,
		GeminiModel:       "gemini-2.5-flash",
		OpenAIModel:       "gpt-4o-mini",
		GeminiImageModel:  "gemini-2.5-flash-image",
		OpenAIImageModel:  "dall-e-3",
		DeckName:          "LinkMemory Vocabulary",
	}
}
