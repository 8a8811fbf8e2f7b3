package generator

import (
	"context"

	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// Mode tells a backend which kind of batch it is producing
type Mode int

const (
	// ModeExplicit asks for cards for a fixed list of pool words
	ModeExplicit Mode = iota
	// ModeOpenEnded asks the model to pick new words itself
	ModeOpenEnded
)

func (m Mode) String() string {
	switch m {
	case ModeExplicit:
		return "explicit"
	case ModeOpenEnded:
		return "open-ended"
	default:
		return "unknown"
	}
}

// Request is one batch request handed to a backend
type Request struct {
	Category wordpool.Category
	Mode     Mode
	Words    []string // explicit mode: words to generate cards for
	Count    int      // number of cards wanted
	Avoid    []string // open-ended mode: recent words the model should skip
	Prompt   string   // rendered instruction text
}

// Backend performs the remote generation call and returns the raw response
type Backend interface {
	// Generate sends one request and returns the model's JSON output
	Generate(ctx context.Context, req *Request) ([]byte, error)

	// Name returns the backend name
	Name() string
}
