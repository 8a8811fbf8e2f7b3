package session

import (
	"errors"
	"fmt"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

var (
	// ErrNotReady is returned when no card is visible for the requested action
	ErrNotReady = errors.New("no card ready")
	// ErrNotInError is returned by Retry outside the error state
	ErrNotInError = errors.New("session is not in error state")
	// ErrNoCategory is returned when an action needs a selected category
	ErrNoCategory = errors.New("no category selected")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("session closed")
)

// DefaultErrorMessage is shown when a blocking load fails
const DefaultErrorMessage = "网络连接不稳定，无法加载单词。请检查API Key或重试。"

// State is the coarse controller state
type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Idle, Loading, Ready, Error} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Stats counts grading actions for the lifetime of the controller
type Stats struct {
	TotalLearned  int `json:"totalLearned"`
	CurrentStreak int `json:"currentStreak"`
	MasteredCount int `json:"masteredCount"`
}

func (s *Stats) record(known bool) {
	s.TotalLearned++
	if known {
		s.CurrentStreak++
		s.MasteredCount++
	} else {
		s.CurrentStreak = 0
	}
}

// View is an immutable snapshot of what a front-end should render
type View struct {
	State        State             `json:"state"`
	Category     wordpool.Category `json:"category,omitempty"`
	Card         *card.StudyCard   `json:"card,omitempty"` // nil while loading or in error
	Index        int               `json:"index"`
	Total        int               `json:"total"`
	Flipped      bool              `json:"flipped"`
	BatchLoading bool              `json:"batchLoading"`
	ImageLoading bool              `json:"imageLoading"` // image of the visible card is in flight
	Waiting      bool              `json:"waiting"`      // cursor sits past the last card
	Error        string            `json:"error,omitempty"`
	Stats        Stats             `json:"stats"`
}

// imageMarker identifies the single tracked image request
type imageMarker struct {
	epoch uint64
	index int
}
