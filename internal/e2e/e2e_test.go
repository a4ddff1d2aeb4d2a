// Package e2e exercises the full stack over real sockets: log ring, manager
// lifecycle, router and runtime bridge together.
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/httpapi"
	"inferd/internal/logring"
	"inferd/internal/manager"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

type echoRuntime struct{}

func (echoRuntime) Initialize(runtime.Config) error { return nil }
func (echoRuntime) Dispose() error                  { return nil }

func (echoRuntime) Run(prompt string, images [][]byte, audio []byte, params runtime.Params, h runtime.Handler) {
	go func() {
		h.OnDelta("echo: " + prompt)
		h.OnDone()
	}()
}

type blockingRuntime struct{ release chan struct{} }

func (b *blockingRuntime) Initialize(runtime.Config) error { return nil }
func (b *blockingRuntime) Dispose() error                  { return nil }

func (b *blockingRuntime) Run(prompt string, images [][]byte, audio []byte, params runtime.Params, h runtime.Handler) {
	go func() {
		<-b.release
		h.OnDone()
	}()
}

func freeBasePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func startServer(t *testing.T, model string) (*manager.Manager, string) {
	t.Helper()
	ring := logring.New(0)
	log := zerolog.New(nil).Hook(logring.Hook{Ring: ring})
	m := manager.New(manager.Config{
		Host:         "127.0.0.1",
		BasePort:     freeBasePort(t),
		PortAttempts: 10,
		ModelName:    model,
		InferTimeout: 10 * time.Second,
	}, log, ring)
	m.SetHandler(httpapi.NewMux(m))
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop() })
	return m, fmt.Sprintf("http://127.0.0.1:%d", m.Status().Port)
}

func postCompletion(t *testing.T, base, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(base+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func errorType(t *testing.T, body []byte) string {
	t.Helper()
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, body)
	}
	return er.Error.Type
}

func TestEndToEndCompletion(t *testing.T) {
	m, base := startServer(t, "gemma-3n")
	if err := m.AttachRuntime(echoRuntime{}, runtime.Config{}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	resp, body := postCompletion(t, base, `{"model":"gemma-3n","messages":[{"role":"user","content":"Hi"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var cc types.ChatCompletionResponse
	if err := json.Unmarshal(body, &cc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cc.Choices[0].Message.Content != "echo: Hi" {
		t.Fatalf("content=%q", cc.Choices[0].Message.Content)
	}

	hres, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer hres.Body.Close()
	var hr types.HealthResponse
	if err := json.NewDecoder(hres.Body).Decode(&hr); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !hr.ServerRunning || !hr.ModelLoaded || hr.RequestsProcessed != 1 {
		t.Fatalf("unexpected health: %+v", hr)
	}

	mres, err := http.Get(base + "/v1/models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	defer mres.Body.Close()
	var ml types.ModelList
	if err := json.NewDecoder(mres.Body).Decode(&ml); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(ml.Data) != 1 || ml.Data[0].ID != "gemma-3n" {
		t.Fatalf("unexpected models: %+v", ml)
	}
}

func TestCompletionBeforeRuntimeAttach(t *testing.T) {
	_, base := startServer(t, "m")
	resp, body := postCompletion(t, base, `{"model":"m","messages":[{"role":"user","content":"Hi"}]}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if typ := errorType(t, body); typ != "model_not_initialized" {
		t.Fatalf("type=%q", typ)
	}
}

func TestBusyRejectionUnderLoad(t *testing.T) {
	m, base := startServer(t, "m")
	rt := &blockingRuntime{release: make(chan struct{})}
	if err := m.AttachRuntime(rt, runtime.Config{}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	done := make(chan int, 1)
	go func() {
		resp, _ := http.Post(base+"/v1/chat/completions", "application/json",
			strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"slow"}]}`))
		if resp != nil {
			resp.Body.Close()
			done <- resp.StatusCode
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !m.Status().Busy {
		if time.Now().After(deadline) {
			t.Fatal("first request never became busy")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := postCompletion(t, base, `{"model":"m","messages":[{"role":"user","content":"second"}]}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if typ := errorType(t, body); typ != "server_busy" {
		t.Fatalf("type=%q", typ)
	}

	close(rt.release)
	select {
	case code := <-done:
		if code != http.StatusOK {
			t.Fatalf("first request status=%d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first request never finished")
	}
}

func TestSecondInstanceFallsToNextPort(t *testing.T) {
	first, base1 := startServer(t, "m")
	basePort := first.Status().Port

	ring := logring.New(0)
	second := manager.New(manager.Config{
		Host:         "127.0.0.1",
		BasePort:     basePort,
		PortAttempts: 5,
		ModelName:    "m",
	}, zerolog.Nop(), ring)
	second.SetHandler(httpapi.NewMux(second))
	if err := second.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	t.Cleanup(func() { _ = second.Stop() })

	if second.Status().Port == basePort {
		t.Fatalf("second instance reused port %d", basePort)
	}
	for _, base := range []string{base1, fmt.Sprintf("http://127.0.0.1:%d", second.Status().Port)} {
		resp, err := http.Get(base + "/health")
		if err != nil {
			t.Fatalf("health %s: %v", base, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("health %s status=%d", base, resp.StatusCode)
		}
	}
}

func TestUnknownEndpointReturnsStructured404(t *testing.T) {
	_, base := startServer(t, "m")
	resp, err := http.Get(base + "/v2/unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if typ := errorType(t, body); typ != "not_found" {
		t.Fatalf("type=%q", typ)
	}
}

func TestStopClosesListener(t *testing.T) {
	m, base := startServer(t, "m")
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := http.Get(base + "/health"); err == nil {
		t.Fatal("expected connection failure after stop")
	}
}
