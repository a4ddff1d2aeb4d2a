// Package manager owns the listener lifecycle, the single-flight admission
// gate, and the synchronous completion pipeline in front of the inference
// runtime.
package manager

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/bridge"
	"inferd/internal/decoder"
	"inferd/internal/format"
	"inferd/internal/logring"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultBasePort     = 8080
	defaultPortAttempts = 10
	bindRetryDelay      = 300 * time.Millisecond
	refreshInterval     = time.Second
	shutdownTimeout     = 5 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Host         string
	BasePort     int
	PortAttempts int
	ModelName    string
	InferTimeout time.Duration
}

// Manager is the lifecycle owner: it binds the listener (with sequential
// port retry), refreshes the observable status, and serializes completions
// through the admission gate. The runtime can be attached after the
// listener is up; until then completions fail with model_not_initialized.
type Manager struct {
	mu          sync.RWMutex
	cfg         Config
	state       types.ServiceState
	boundPort   int
	boundAddr   string
	startTime   time.Time
	srv         *http.Server
	handler     http.Handler
	refreshStop chan struct{}
	rt          runtime.Runtime
	bri         *bridge.Bridge
	baseCtx     context.Context
	baseCancel  context.CancelFunc

	gate *gate
	ring *logring.Ring
	dec  *decoder.Decoder
	log  zerolog.Logger
	feed statusFeed
}

// New constructs a stopped Manager. The ring is shared with the logger's
// hook so component logs and the status feed stay in sync.
func New(cfg Config, log zerolog.Logger, ring *logring.Ring) *Manager {
	if cfg.BasePort <= 0 {
		cfg.BasePort = defaultBasePort
	}
	if cfg.PortAttempts <= 0 {
		cfg.PortAttempts = defaultPortAttempts
	}
	if cfg.InferTimeout <= 0 {
		cfg.InferTimeout = bridge.DefaultTimeout
	}
	if ring == nil {
		ring = logring.New(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		state:      types.StateStopped,
		gate:       newGate(),
		ring:       ring,
		dec:        decoder.New(log),
		log:        log,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// SetHandler installs the HTTP handler served once Start binds a port.
func (m *Manager) SetHandler(h http.Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// Start binds sequentially to BasePort..BasePort+PortAttempts-1, retrying
// only on address-in-use; any other bind failure aborts the whole start.
// On success the listener serves in the background and the status refresh
// loop begins.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.state == types.StateStarting || m.state == types.StateRunning {
		m.mu.Unlock()
		return fmt.Errorf("server already %s", m.state)
	}
	if m.handler == nil {
		m.mu.Unlock()
		return fmt.Errorf("no handler configured")
	}
	m.state = types.StateStarting
	if m.baseCtx.Err() != nil {
		m.baseCtx, m.baseCancel = context.WithCancel(context.Background())
	}
	m.mu.Unlock()
	m.ring.Info("starting server", fmt.Sprintf("base port %d", m.cfg.BasePort))

	var (
		ln   net.Listener
		port int
	)
	err := retry(m.cfg.PortAttempts, bindRetryDelay, isAddrInUse, func(attempt int) error {
		p := m.cfg.BasePort + attempt
		l, bindErr := net.Listen("tcp", net.JoinHostPort(m.cfg.Host, strconv.Itoa(p)))
		if bindErr != nil {
			m.log.Warn().Int("port", p).Err(bindErr).Msg("bind failed")
			return bindErr
		}
		ln = l
		port = p
		return nil
	})
	if err != nil {
		m.mu.Lock()
		m.state = types.StateError
		m.mu.Unlock()
		m.ring.Error("failed to bind listener", err.Error())
		return fmt.Errorf("bind: %w", err)
	}

	srv := &http.Server{Handler: m.handler}
	stop := make(chan struct{})
	m.mu.Lock()
	m.srv = srv
	m.boundPort = port
	m.boundAddr = localIP()
	m.startTime = time.Now()
	m.refreshStop = stop
	m.state = types.StateRunning
	m.mu.Unlock()

	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			m.log.Error().Err(serveErr).Msg("server error")
			m.mu.Lock()
			m.state = types.StateError
			m.mu.Unlock()
		}
	}()
	go m.refreshLoop(stop)

	m.log.Info().Int("port", port).Msg("server listening")
	m.ring.Success("server started", fmt.Sprintf("%s:%d", m.boundAddr, port))
	return nil
}

// Stop closes the listener, cancels the refresh loop and resets counters.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.state != types.StateRunning {
		if m.state == types.StateError {
			m.state = types.StateStopped
		}
		m.mu.Unlock()
		return nil
	}
	m.state = types.StateStopping
	srv := m.srv
	stop := m.refreshStop
	m.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	// Unblock any in-flight bridge wait; the admitted request answers with
	// an error while the listener drains.
	m.baseCancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	m.gate.Reset()
	m.mu.Lock()
	m.state = types.StateStopped
	m.srv = nil
	m.boundPort = 0
	m.boundAddr = ""
	m.startTime = time.Time{}
	m.refreshStop = nil
	m.mu.Unlock()
	m.ring.Info("server stopped", "")
	return err
}

// AttachRuntime initializes rt and makes it the completion backend. The
// listener may already be serving; requests seen before this call fail
// with model_not_initialized.
func (m *Manager) AttachRuntime(rt runtime.Runtime, rcfg runtime.Config) error {
	if rt == nil {
		return fmt.Errorf("nil runtime")
	}
	if err := rt.Initialize(rcfg); err != nil {
		m.ring.Error("runtime initialization failed", err.Error())
		return err
	}
	m.mu.Lock()
	m.rt = rt
	m.bri = bridge.New(rt, m.cfg.InferTimeout)
	m.mu.Unlock()
	m.ring.Success("model runtime attached", m.cfg.ModelName)
	return nil
}

// DetachRuntime disposes the attached runtime, if any.
func (m *Manager) DetachRuntime() error {
	m.mu.Lock()
	rt := m.rt
	m.rt = nil
	m.bri = nil
	m.mu.Unlock()
	if rt == nil {
		return nil
	}
	m.ring.Info("model runtime detached", "")
	return rt.Dispose()
}

// Ready reports whether an inference runtime is attached.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rt != nil
}

// ModelName returns the configured model identifier.
func (m *Manager) ModelName() string { return m.cfg.ModelName }

// StartedAt returns the time of the last successful bind, zero when
// stopped.
func (m *Manager) StartedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startTime
}

// Complete runs the full pipeline for one chat completion: validation,
// admission, content decoding, the blocking bridge call, and response
// assembly. The busy slot is released on every exit path.
func (m *Manager) Complete(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionResponse, error) {
	var zero types.ChatCompletionResponse
	if len(req.Messages) == 0 {
		return zero, invalidRequestError{msg: "messages must not be empty"}
	}
	if req.Stream {
		return zero, invalidRequestError{msg: "streaming responses are not supported"}
	}
	if strings.TrimSpace(req.Model) == "" {
		return zero, invalidRequestError{msg: "model is required"}
	}
	if req.Model != m.cfg.ModelName {
		return zero, modelMismatchError{requested: req.Model}
	}
	m.mu.RLock()
	bri := m.bri
	base := m.baseCtx
	m.mu.RUnlock()
	if bri == nil {
		return zero, notInitializedError{}
	}

	if !m.gate.TryAcquire() {
		return zero, busyError{}
	}
	defer m.gate.Release()
	m.gate.CountRequest()

	content, err := m.dec.DecodeMessages(req.Messages)
	if err != nil {
		return zero, err
	}
	images := make([][]byte, 0, len(content.Images))
	for _, img := range content.Images {
		images = append(images, img.Data)
	}
	params := runtime.Params{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		MaxTokens:   req.MaxTokens,
	}

	m.log.Info().
		Int("images", len(images)).
		Bool("audio", len(content.Audio) > 0).
		Msg("inference start")
	completion, err := bri.Complete(base, content.Text, images, content.Audio, params)
	if err != nil {
		m.ring.Error("inference failed", err.Error())
		return zero, err
	}
	return format.ChatResponse(req.Model, content.Text, completion), nil
}

func (m *Manager) refreshLoop(stop chan struct{}) {
	t := time.NewTicker(refreshInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.feed.publish(m.Status())
		}
	}
}

// localIP returns the first non-loopback IPv4 address so LAN clients know
// where the listener lives.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if v4 := ipn.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "127.0.0.1"
}
