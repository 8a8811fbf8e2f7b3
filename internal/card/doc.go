// Package card defines the study card produced by the generation backends
// and the all-or-nothing parser that turns a backend response into cards.
package card
