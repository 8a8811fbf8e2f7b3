package card

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField marks a record without one of the required fields
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidDifficulty marks a difficulty outside easy/medium/hard
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrMalformed marks a response that is not a card array
	ErrMalformed = errors.New("malformed card batch")
)

// Difficulty is the generator's estimate of how hard a word is
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the allowed values in schema order
func Difficulties() []string {
	return []string{string(Easy), string(Medium), string(Hard)}
}

// Valid reports whether d is one of the enumerated values
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	default:
		return false
	}
}

// StudyCard is one flashcard. Image is a data URL attached after creation.
type StudyCard struct {
	Word               string     `json:"word"`
	Phonetic           string     `json:"phonetic"`
	Definition         string     `json:"definition"`
	Mnemonic           string     `json:"mnemonic"`
	ExampleSentence    string     `json:"exampleSentence"`
	ExampleTranslation string     `json:"exampleTranslation"`
	Difficulty         Difficulty `json:"difficulty"`
	Image              string     `json:"imageUrl,omitempty"`
}

// RequiredFields are the JSON names every generated record must carry
var RequiredFields = []string{
	"word",
	"phonetic",
	"definition",
	"mnemonic",
	"exampleSentence",
	"exampleTranslation",
	"difficulty",
}

// HasImage reports whether an illustration has been attached
func (c *StudyCard) HasImage() bool {
	return c.Image != ""
}

// Validate checks required fields and the difficulty enum
func (c *StudyCard) Validate() error {
	values := []string{
		c.Word,
		c.Phonetic,
		c.Definition,
		c.Mnemonic,
		c.ExampleSentence,
		c.ExampleTranslation,
		string(c.Difficulty),
	}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, RequiredFields[i])
		}
	}
	if !c.Difficulty.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, c.Difficulty)
	}
	return nil
}

// Words returns the word of every card in order
func Words(cards []StudyCard) []string {
	words := make([]string, len(cards))
	for i := range cards {
		words[i] = cards[i].Word
	}
	return words
}
