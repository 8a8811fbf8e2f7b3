package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultMIMEType is used when a backend does not report one
const DefaultMIMEType = "image/png"

// DefaultMaxSizeBytes is the largest payload accepted from a backend
const DefaultMaxSizeBytes = 5 * 1024 * 1024 // 5MB

var (
	// ErrNoImage is returned when a response carries no image payload
	ErrNoImage = errors.New("no image in response")
	// ErrTooLarge is returned for payloads above the size limit
	ErrTooLarge = errors.New("image exceeds maximum size")
	// ErrInvalidDataURL is returned when a data URL cannot be decoded
	ErrInvalidDataURL = errors.New("invalid data URL")
)

// Payload is one generated image
type Payload struct {
	Data     []byte
	MIMEType string
}

// Backend generates a single image for a prompt
type Backend interface {
	// GenerateImage returns the first image the model produced
	GenerateImage(ctx context.Context, prompt string) (*Payload, error)

	// Name returns the backend name
	Name() string

	// Model returns the image model in use
	Model() string
}

// BuildPrompt combines the word, its mnemonic and the fixed style directives
func BuildPrompt(word, mnemonic string) string {
	return fmt.Sprintf(`Create a simple, funny, minimalistic cartoon illustration for the English word "%s".
The scene should depict this memory story: %s
Style: thick lines, colorful, flat shapes, white background.
Do NOT put any text, letters or words inside the image.`, word, mnemonic)
}

// DataURL encodes the payload as data:<mime>;base64,<data>
func (p *Payload) DataURL() string {
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// DecodeDataURL reverses DataURL. Only base64 data URLs are accepted.
func DecodeDataURL(s string) (*Payload, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma", ErrInvalidDataURL)
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: not base64 encoded", ErrInvalidDataURL)
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return &Payload{Data: data, MIMEType: mimeType}, nil
}

// Extension returns the file extension for the payload's MIME type
func (p *Payload) Extension() string {
	switch p.MIMEType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
