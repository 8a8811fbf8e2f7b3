// Package generator produces study cards for a category. It walks the static
// word pool in curriculum order, switches to open-ended generation once the
// pool is exhausted, and sends one request per batch to an AI backend
// (Gemini or OpenAI). A batch is accepted only if every record validates.
package generator
