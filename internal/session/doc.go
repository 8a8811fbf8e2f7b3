// Package session implements the study session state machine: the queue of
// generated cards, the cursor the learner is looking at, grading statistics,
// background pre-fetching of the next batch and one-at-a-time image
// enrichment of the visible card.
//
// All state is owned by a Controller and guarded by a single mutex. Remote
// calls run in their own goroutines and their results are tagged with the
// epoch (category selection) they were issued in; results from an older
// epoch are discarded instead of cancelled.
package session
