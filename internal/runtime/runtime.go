// Package runtime defines the contract for the underlying inference engine.
// The engine is a black box: it receives a prompt plus raw media bytes and
// reports results asynchronously through callbacks.
package runtime

// Config carries initialization parameters for a runtime.
type Config struct {
	// ModelPath points at the model weights on disk.
	ModelPath string
	// CtxSize is the context window size; 0 uses the backend default.
	CtxSize int
	// Threads used for generation; 0 uses the backend default.
	Threads int
}

// Params are per-request generation parameters. Zero values mean "backend
// default".
type Params struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

// Handler receives the asynchronous outcome of one generation. OnDelta is
// invoked once per text delta in emission order; exactly one of OnDone or
// OnError follows the last delta.
type Handler struct {
	OnDelta func(delta string)
	OnDone  func()
	OnError func(err error)
}

// Runtime is the external inference engine. Run must not block the caller;
// it submits the generation and reports through the handler. How the engine
// turns images and audio into model inputs is its own concern.
type Runtime interface {
	Initialize(cfg Config) error
	Run(prompt string, images [][]byte, audio []byte, params Params, h Handler)
	Dispose() error
}
