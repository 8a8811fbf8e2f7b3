package cli

import (
	"reflect"
	"testing"
	"time"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Provider", flags.Provider, "gemini"},
		{"Category", flags.Category, "henan-zsb"},
		{"BatchSize", flags.BatchSize, 5},
		{"PrefetchThreshold", flags.PrefetchThreshold, 2},
		{"AdvanceDelay", flags.AdvanceDelay, 200 * time.Millisecond},
		{"Temperature", flags.Temperature, 1.1},
		{"RequestsPerMinute", flags.RequestsPerMinute, 30},
		{"GeminiModel", flags.GeminiModel, "gemini-2.5-flash"},
		{"GeminiImageModel", flags.GeminiImageModel, "gemini-2.5-flash-image"},
		{"OpenAIModel", flags.OpenAIModel, "gpt-4o-mini"},
		{"OpenAIImageModel", flags.OpenAIImageModel, "dall-e-3"},
		{"DeckName", flags.DeckName, "LinkMemory Vocabulary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	boolTests := []struct {
		name  string
		value bool
	}{
		{"SkipImages", flags.SkipImages},
		{"NoImageCache", flags.NoImageCache},
		{"GenerateAnki", flags.GenerateAnki},
		{"AnkiCSV", flags.AnkiCSV},
		{"ListModels", flags.ListModels},
		{"Archive", flags.Archive},
		{"ClearImageCache", flags.ClearImageCache},
		{"Verbose", flags.Verbose},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}
}
