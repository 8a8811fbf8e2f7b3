// Package processor wires the application together. It resolves the AI
// provider from the flags, builds the card generator, image enricher and
// session controller, and runs the terminal or HTTP front-end, the Anki
// export and the model listing.
package processor
