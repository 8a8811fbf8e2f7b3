package wordpool

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// ReadWordFile reads a word list, one word per line. Blank lines and lines
// starting with '#' are ignored; duplicates keep their first position.
func ReadWordFile(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read word file: %w", err)
	}
	return parseWordList(string(content)), nil
}

func parseWordList(content string) []string {
	var words []string
	for _, line := range splitLines(content) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// "word = translation" lines from older lists keep only the word
		if before, _, found := strings.Cut(line, "="); found {
			line = strings.TrimSpace(before)
			if line == "" {
				continue
			}
		}
		words = append(words, line)
	}
	return lo.Uniq(words)
}

// splitLines splits a string by newlines, dropping carriage returns
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
