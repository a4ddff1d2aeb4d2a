//go:build llama

package runtime

import (
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaRuntime runs generations in-process through go-llama.cpp. The
// binding is text-only; media bytes are accepted per the Runtime contract
// and ignored.
type llamaRuntime struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

// NewLlama returns a go-llama.cpp backed runtime.
func NewLlama() Runtime {
	return &llamaRuntime{}
}

func (r *llamaRuntime) Initialize(cfg Config) error {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return errors.New("model path is empty")
	}
	mo := []llama.ModelOption{}
	if cfg.CtxSize > 0 {
		mo = append(mo, llama.SetContext(cfg.CtxSize))
	}
	m, err := llama.New(cfg.ModelPath, mo...)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.model = m
	r.threads = cfg.Threads
	r.mu.Unlock()
	return nil
}

func (r *llamaRuntime) Run(prompt string, images [][]byte, audio []byte, params Params, h Handler) {
	go func() {
		r.mu.Lock()
		m := r.model
		threads := r.threads
		r.mu.Unlock()
		if m == nil {
			h.OnError(errors.New("llama model not initialized"))
			return
		}
		m.SetTokenCallback(func(tok string) bool {
			h.OnDelta(tok)
			return true
		})
		po := predictOptions(params, threads)
		if _, err := m.Predict(prompt, po...); err != nil {
			h.OnError(err)
			return
		}
		h.OnDone()
	}()
}

func (r *llamaRuntime) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

// predictOptions converts request parameters into go-llama.cpp options.
func predictOptions(params Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{}
	if params.MaxTokens > 0 {
		po = append(po, llama.SetTokens(params.MaxTokens))
	}
	if threads > 0 {
		po = append(po, llama.SetThreads(threads))
	}
	if params.Temperature > 0 {
		po = append(po, llama.SetTemperature(float32(params.Temperature)))
	}
	if params.TopP > 0 {
		po = append(po, llama.SetTopP(float32(params.TopP)))
	}
	if params.TopK > 0 {
		po = append(po, llama.SetTopK(params.TopK))
	}
	return po
}
