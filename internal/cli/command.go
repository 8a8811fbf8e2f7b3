package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/linkmemory/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linkmemory [category]",
		Short: "AI mnemonic flashcards for English exam vocabulary",
		Long: `linkmemory generates flashcards with a phonetic transcription, a Chinese
definition, a vivid mnemonic story, an example sentence and a cartoon
illustration for English exam vocabulary, and lets you study them.

Categories: henan-zsb (河南专升本英语), gaokao (高考英语), cet4 (大学英语四级),
cet6 (大学英语六级).

Examples:
  linkmemory                        # Study the default category in the terminal
  linkmemory gaokao --skip-images   # Study Gaokao words without illustrations
  linkmemory --serve :8080          # Serve the JSON API for a web front-end
  linkmemory cet4 --words cet4.txt  # Extend the CET-4 pool from a word list
  linkmemory --anki --deck-name 高考 # Export the studied cards to Anki on quit`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	home, _ := os.UserHomeDir()
	defaultOutputDir := filepath.Join(home, ".local", "state", "linkmemory", "exports")

	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.linkmemory.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Local flags
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", defaultOutputDir, "Output directory for Anki exports")
	cmd.Flags().StringVarP(&flags.Provider, "provider", "p", flags.Provider, "AI provider: gemini or openai")
	cmd.Flags().StringVarP(&flags.Category, "category", "c", flags.Category, "Word category: henan-zsb, gaokao, cet4, cet6")
	cmd.Flags().StringVar(&flags.WordsFile, "words", "", "Extend the category's word pool from a file (one word per line)")
	cmd.Flags().StringVar(&flags.Serve, "serve", "", "Serve the JSON API on this address (e.g. :8080) instead of the terminal UI")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available models for the configured API keys")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Move the output directory to a timestamped archive and exit")

	// Session flags
	cmd.Flags().IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "Cards per generation request")
	cmd.Flags().IntVar(&flags.PrefetchThreshold, "prefetch-threshold", flags.PrefetchThreshold, "Pre-fetch when this few cards remain")
	cmd.Flags().DurationVar(&flags.AdvanceDelay, "advance-delay", flags.AdvanceDelay, "Pause after grading before the next card")

	// Generation flags
	cmd.Flags().Float64Var(&flags.Temperature, "temperature", flags.Temperature, "Sampling temperature for card generation")
	cmd.Flags().IntVar(&flags.RequestsPerMinute, "rpm", flags.RequestsPerMinute, "Maximum generation requests per minute (0 = unlimited)")
	cmd.Flags().StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini model for card generation")
	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI model for card generation")

	// Image flags
	cmd.Flags().BoolVar(&flags.SkipImages, "skip-images", false, "Do not generate illustrations")
	cmd.Flags().BoolVar(&flags.NoImageCache, "no-image-cache", false, "Disable the on-disk image cache")
	cmd.Flags().StringVar(&flags.ImageCacheDir, "image-cache-dir", "", "Image cache directory (default ~/.cache/linkmemory/images)")
	cmd.Flags().StringVar(&flags.GeminiImageModel, "gemini-image-model", flags.GeminiImageModel, "Gemini model for illustrations")
	cmd.Flags().StringVar(&flags.OpenAIImageModel, "openai-image-model", flags.OpenAIImageModel, "OpenAI image model: dall-e-2 or dall-e-3")
	cmd.Flags().BoolVar(&flags.ClearImageCache, "clear-image-cache", false, "Delete all cached illustrations and exit")

	// Anki flags
	cmd.Flags().BoolVar(&flags.GenerateAnki, "anki", false, "Export studied cards to Anki on quit (APKG format by default)")
	cmd.Flags().BoolVar(&flags.AnkiCSV, "anki-csv", false, "Export CSV instead of APKG when using --anki")
	cmd.Flags().StringVar(&flags.DeckName, "deck-name", flags.DeckName, "Deck name for APKG export")

	bindFlagsToViper(cmd)
}

// flagKeys maps viper keys to flag names
var flagKeys = map[string]string{
	"provider":                       "provider",
	"output.directory":               "output",
	"session.category":               "category",
	"session.batch_size":             "batch-size",
	"session.prefetch_threshold":     "prefetch-threshold",
	"session.advance_delay":          "advance-delay",
	"generation.temperature":         "temperature",
	"generation.requests_per_minute": "rpm",
	"gemini.model":                   "gemini-model",
	"gemini.image_model":             "gemini-image-model",
	"openai.model":                   "openai-model",
	"openai.image_model":             "openai-image-model",
	"image.skip":                     "skip-images",
	"image.no_cache":                 "no-image-cache",
	"image.cache_dir":                "image-cache-dir",
	"anki.deck_name":                 "deck-name",
}

func bindFlagsToViper(cmd *cobra.Command) {
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			viper.BindPFlag(key, f)
		}
	}
}

// InitConfig loads .env, the config file and LINKMEMORY_ environment variables
func InitConfig(cfgFile string) {
	// A missing .env is the normal case
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "error", err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".linkmemory")
	}

	viper.SetEnvPrefix("LINKMEMORY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Info("using config file", "path", viper.ConfigFileUsed())
	}
}

// ApplyConfig copies the resolved viper values (flag, env, config file or
// default, in that order) back into flags
func (f *Flags) ApplyConfig() {
	f.Provider = viper.GetString("provider")
	f.OutputDir = viper.GetString("output.directory")
	f.Category = viper.GetString("session.category")
	f.BatchSize = viper.GetInt("session.batch_size")
	f.PrefetchThreshold = viper.GetInt("session.prefetch_threshold")
	f.AdvanceDelay = viper.GetDuration("session.advance_delay")
	f.Temperature = viper.GetFloat64("generation.temperature")
	f.RequestsPerMinute = viper.GetInt("generation.requests_per_minute")
	f.GeminiModel = viper.GetString("gemini.model")
	f.GeminiImageModel = viper.GetString("gemini.image_model")
	f.OpenAIModel = viper.GetString("openai.model")
	f.OpenAIImageModel = viper.GetString("openai.image_model")
	f.SkipImages = viper.GetBool("image.skip")
	f.NoImageCache = viper.GetBool("image.no_cache")
	f.ImageCacheDir = viper.GetString("image.cache_dir")
	f.DeckName = viper.GetString("anki.deck_name")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return viper.GetString("gemini.api_key")
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("openai.api_key")
}
