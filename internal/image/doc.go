// Package image produces the cartoon illustration attached to a study card.
// An Enricher builds the prompt from the word and its mnemonic, asks a
// Backend for one picture and returns it as a data URL, optionally reading
// and writing an on-disk cache.
package image
