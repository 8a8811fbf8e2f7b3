package generator

import (
	"fmt"
	"strings"

	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// BuildExplicitPrompt renders the instruction for a fixed word list
func BuildExplicitPrompt(category wordpool.Category, words []string) string {
	return fmt.Sprintf(`Role: Expert English Teacher specializing in %s.
Task: Create detailed study cards for the following specific words: %s.

Requirements:
1. STRICTLY only generate content for the provided words, one card per word, in the given order.
2. The "mnemonic" MUST be a vivid STORY or visual scene in Chinese. Use "谐音" (homophone) or wild imagination so it is easy to picture as a cartoon.
3. "definition" is a concise Chinese definition, "phonetic" is the IPA transcription.
4. Example sentences should be simple and clear, with a Chinese translation.`,
		category.DisplayName(), strings.Join(words, ", "))
}

// BuildOpenEndedPrompt renders the instruction used once the pool is used up
func BuildOpenEndedPrompt(category wordpool.Category, count int, avoid []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Role: Expert English Teacher specializing in %s.
Task: Generate %d NEW important vocabulary words frequently found in the %s exam.

Requirements:
`, category.DisplayName(), count, category.DisplayName())

	n := 1
	if len(avoid) > 0 {
		fmt.Fprintf(&b, "%d. Do not include these words: %s.\n", n, strings.Join(avoid, ", "))
		n++
	}
	fmt.Fprintf(&b, `%d. The "mnemonic" MUST be a vivid STORY or visual scene in Chinese.
%d. "definition" is a concise Chinese definition, "phonetic" is the IPA transcription.`, n, n+1)

	return b.String()
}
