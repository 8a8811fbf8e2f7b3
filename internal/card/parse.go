package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// envelope is the object form some backends return, e.g. OpenAI JSON mode
type envelope struct {
	Cards []StudyCard `json:"cards"`
}

// ParseBatch decodes a backend response into cards. The response may be a
// bare JSON array or an object with a "cards" array, optionally wrapped in a
// markdown code fence. One invalid record rejects the whole batch.
func ParseBatch(data []byte) ([]StudyCard, error) {
	data = stripCodeFence(bytes.TrimSpace(data))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformed)
	}

	var cards []StudyCard
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if env.Cards == nil {
			return nil, fmt.Errorf("%w: no cards array", ErrMalformed)
		}
		cards = env.Cards
	default:
		return nil, fmt.Errorf("%w: unexpected leading %q", ErrMalformed, data[0])
	}

	for i := range cards {
		cards[i].Word = strings.TrimSpace(cards[i].Word)
		cards[i].Difficulty = Difficulty(strings.TrimSpace(string(cards[i].Difficulty)))
		// Images only ever come from the enricher
		cards[i].Image = ""
		if err := cards[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	return cards, nil
}

func stripCodeFence(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("```")) {
		return data
	}
	if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
		data = data[nl+1:]
	}
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte("```"))
	return bytes.TrimSpace(data)
}
