// Package gateway defines the text-generation gateway contract and provides
// an HTTP client for OpenAI-compatible local model services (Ollama, vLLM,
// LM Studio). The rest of the pipeline depends only on the Gateway
// interface; collaborators are injected, never looked up from ambient state.
package gateway

import "context"

// ChunkFunc receives one generated text chunk during streaming.
type ChunkFunc func(chunk string)

// ProgressFunc receives periodic textual status during streaming.
type ProgressFunc func(message string)

// Gateway is the text-generation service contract consumed by the
// derivation engine and health monitor.
type Gateway interface {
	// Generate sends a single user prompt and returns the generated text.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithSystem sends a system message alongside the context
	// prompt and returns the generated text.
	GenerateWithSystem(ctx context.Context, system, prompt string) (string, error)

	// GenerateStream streams the response, delivering chunks to onChunk and
	// periodic status text to onProgress, and returns the full combined
	// text once the stream completes. Both callbacks may be nil.
	GenerateStream(ctx context.Context, system, prompt string, onChunk ChunkFunc, onProgress ProgressFunc) (string, error)
}
