// Package models lists the Gemini and OpenAI models available to the
// configured API keys, grouped by what LinkMemory can use them for.
package models
