// Package wordpool holds the static, ordered word catalogs for each exam
// category. A pool is pure data: the card generator walks it in order and
// falls back to open-ended generation once every word has been shown.
package wordpool
