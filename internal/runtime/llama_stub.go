//go:build !llama

package runtime

// This file provides a no-CGO stub for the llama runtime. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real runtime lives in llama.go (tagged 'llama').

import "errors"

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

type llamaRuntime struct{}

// NewLlama returns a stub that refuses to initialize, so servers built
// without the 'llama' tag answer model_not_initialized instead of mocking
// inference.
func NewLlama() Runtime {
	return &llamaRuntime{}
}

func (r *llamaRuntime) Initialize(cfg Config) error {
	return errors.New("llama support not built (missing 'llama' build tag)")
}

func (r *llamaRuntime) Run(prompt string, images [][]byte, audio []byte, params Params, h Handler) {
	// Should never be called because Initialize fails, but report a clear
	// error anyway.
	if h.OnError != nil {
		h.OnError(errors.New("llama support not built (missing 'llama' build tag)"))
	}
}

func (r *llamaRuntime) Dispose() error { return nil }
