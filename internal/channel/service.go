package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/heliolearn/pulsechan/internal/metrics"
)

// Config configures a channel Service.
type Config struct {
	URL string // WebSocket URL (ws:// or wss://)

	DialTimeout  time.Duration // Timeout for a single connection attempt
	WriteTimeout time.Duration // Write deadline for sends

	BackoffBase          time.Duration // Base reconnect delay
	BackoffMax           time.Duration // Reconnect delay cap
	MinRetryInterval     time.Duration // Minimum spacing between attempts
	MaxReconnectAttempts int           // Consecutive failures before the circuit opens
	CircuitCooldown      time.Duration // How long the circuit stays open

	HeartbeatInterval time.Duration // Liveness probe interval
	HeartbeatTimeout  time.Duration // Max silence before forcing a reconnect

	QueueLimit int // Outbound queue capacity (drop-oldest beyond this)

	DedupWindow        time.Duration // Retention window for seen notification ids
	DedupSweepInterval time.Duration // How often expired dedup entries are purged

	Dialer  Dialer           // nil = WebSocket dialer
	Logger  *slog.Logger     // nil = slog.Default()
	Metrics *metrics.Channel // nil = no metrics
}

// DefaultConfig returns sensible defaults for the given URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		DialTimeout:          10 * time.Second,
		WriteTimeout:         5 * time.Second,
		BackoffBase:          3 * time.Second,
		BackoffMax:           60 * time.Second,
		MinRetryInterval:     time.Second,
		MaxReconnectAttempts: 10,
		CircuitCooldown:      5 * time.Minute,
		HeartbeatInterval:    30 * time.Second,
		HeartbeatTimeout:     35 * time.Second,
		QueueLimit:           1000,
		DedupWindow:          10 * time.Minute,
		DedupSweepInterval:   5 * time.Minute,
	}
}

// Service is a realtime messaging channel over a single persistent
// connection. It owns the transport lifecycle; subscriptions, the dedup
// cache, and the outbound queue survive transport churn. Construct one
// Service per logical channel and share the handle.
type Service struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Channel

	status *broadcaster
	router *router
	queue  *outboundQueue
	dedup  *dedupCache
	sched  *scheduler
	hb     *heartbeatMonitor

	mu             sync.Mutex
	transport      Transport
	gen            uint64 // connection attempt generation; stale callbacks are ignored
	dialing        bool
	draining       bool
	intentional    bool // next close was requested by the caller
	online         bool
	closed         bool
	reconnectTimer *time.Timer
	dialTimer      *time.Timer

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// NewService creates a channel service. Zero config fields fall back to
// DefaultConfig values.
func NewService(cfg Config) *Service {
	defaults := DefaultConfig(cfg.URL)
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaults.BackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaults.BackoffMax
	}
	if cfg.MinRetryInterval <= 0 {
		cfg.MinRetryInterval = defaults.MinRetryInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if cfg.CircuitCooldown <= 0 {
		cfg.CircuitCooldown = defaults.CircuitCooldown
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaults.HeartbeatTimeout
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = defaults.QueueLimit
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = defaults.DedupWindow
	}
	if cfg.DedupSweepInterval <= 0 {
		cfg.DedupSweepInterval = defaults.DedupSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebSocketDialer(cfg.WriteTimeout, cfg.Logger)
	}

	s := &Service{
		cfg:       cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		status:    newBroadcaster(),
		router:    newRouter(cfg.Logger),
		queue:     newOutboundQueue(cfg.QueueLimit),
		dedup:     newDedupCache(cfg.DedupWindow),
		online:    true,
		sweepStop: make(chan struct{}),
	}
	s.sched = newScheduler(cfg.BackoffBase, cfg.BackoffMax, cfg.MinRetryInterval,
		cfg.CircuitCooldown, cfg.MaxReconnectAttempts)
	s.hb = newHeartbeatMonitor(cfg.HeartbeatInterval, cfg.HeartbeatTimeout,
		s.heartbeatProbe, s.heartbeatExpired)
	if s.metrics != nil {
		s.router.onPanic = s.metrics.HandlerPanics.Inc
	}

	go s.sweepLoop()

	return s
}

// Connect establishes the channel. A no-op while a transport is already
// connecting or open, while offline, or while the circuit breaker is open and
// its cooldown has not expired.
func (s *Service) Connect() {
	s.mu.Lock()
	if s.closed || s.transport != nil || s.dialing {
		s.mu.Unlock()
		return
	}
	if !s.online {
		s.mu.Unlock()
		s.logger.Debug("connect skipped, host offline")
		return
	}
	s.mu.Unlock()

	if !s.sched.allow() {
		s.logger.Debug("connect short-circuited, circuit open")
		return
	}

	s.mu.Lock()
	if s.closed || s.transport != nil || s.dialing {
		s.mu.Unlock()
		return
	}
	s.intentional = false
	s.dialing = true
	s.gen++
	gen := s.gen
	wait := s.sched.spacingWait()
	s.mu.Unlock()

	s.setState(StateConnecting)

	// Spacing guards against rapid-fire reconnects from external callers.
	if wait > 0 {
		s.mu.Lock()
		if gen == s.gen && !s.closed {
			s.dialTimer = time.AfterFunc(wait, func() { s.dial(gen) })
		}
		s.mu.Unlock()
	} else {
		go s.dial(gen)
	}
}

// Disconnect terminates the channel and suppresses all automatic
// reconnection until Connect or Reconnect is called again.
func (s *Service) Disconnect() {
	s.mu.Lock()
	s.intentional = true
	s.stopTimersLocked()
	s.dialing = false
	s.gen++ // callbacks from any in-flight attempt are now stale
	t := s.transport
	s.transport = nil
	s.mu.Unlock()

	s.hb.halt()

	if t != nil {
		s.setState(StateClosing)
		t.Close()
	}
	s.setState(StateClosed)
}

// Reconnect forces an intentional close of any existing transport, resets
// backoff state, and immediately re-invokes Connect.
func (s *Service) Reconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimersLocked()
	s.dialing = false
	s.gen++
	t := s.transport
	s.transport = nil
	s.mu.Unlock()

	s.hb.halt()
	if t != nil {
		t.Close()
	}
	s.sched.reset()
	s.setState(StateClosed)
	s.Connect()
}

// SendMessage transmits a message immediately when the channel is open,
// returning true. Otherwise the message is queued for the next connection
// and false is returned; a fully closed channel (no reconnect pending) is
// asked to connect.
func (s *Service) SendMessage(msg Message) bool {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	// The queue push happens in the same critical section as the draining
	// check, so a send racing with a queue flush is either transmitted by the
	// flush loop or sent directly once the drain has settled.
	s.mu.Lock()
	t := s.transport
	direct := t != nil && !s.draining && s.status.get() == StateOpen
	var dropped, idle bool
	if !direct {
		dropped = s.queue.push(msg)
		idle = !s.closed && s.online && s.transport == nil && !s.dialing &&
			s.reconnectTimer == nil && s.dialTimer == nil && s.status.get() == StateClosed
	}
	s.mu.Unlock()

	if direct {
		if data, err := json.Marshal(msg); err == nil {
			if err := t.Send(data); err == nil {
				if s.metrics != nil {
					s.metrics.MessagesSent.Inc()
				}
				return true
			}
		}
		dropped = s.queue.push(msg)
	}

	if dropped {
		s.logger.Warn("outbound queue full, dropped oldest message")
		if s.metrics != nil {
			s.metrics.QueueDropped.Inc()
		}
	}
	if s.metrics != nil {
		s.metrics.MessagesQueued.Inc()
		s.metrics.QueueDepth.Set(float64(s.queue.len()))
	}

	if idle {
		s.Connect()
	}

	return false
}

// Subscribe registers a handler for messages whose type matches the pattern.
// The returned function removes exactly that subscription. Subscriptions
// persist across reconnects.
func (s *Service) Subscribe(p Pattern, h Handler) func() {
	return s.router.subscribe(p, h)
}

// SubscribeToTypes registers a handler for an explicit list of message types.
func (s *Service) SubscribeToTypes(types []string, h Handler) func() {
	return s.router.subscribe(Types(types...), h)
}

// Status returns the current connection state.
func (s *Service) Status() State {
	return s.status.get()
}

// OnStatusChange registers a listener invoked on every state transition.
// The returned function removes the listener.
func (s *Service) OnStatusChange(fn func(State)) func() {
	return s.status.listen(fn)
}

// IsConnected reports whether the channel is open.
func (s *Service) IsConnected() bool {
	return s.status.get() == StateOpen
}

// SetOnline toggles the host availability signal. While offline no
// connection attempts are made; returning online resumes connecting unless
// the channel is connected or was intentionally disconnected.
func (s *Service) SetOnline(online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	var pendingReconnect, pendingDial *time.Timer
	var cancelled bool
	if !online {
		pendingReconnect = s.reconnectTimer
		s.reconnectTimer = nil
		pendingDial = s.dialTimer
		s.dialTimer = nil
		if s.transport == nil && s.dialing {
			// A deferred or in-flight dial must not land while offline.
			s.dialing = false
			s.gen++
			cancelled = true
		}
	}
	idle := s.transport == nil && !s.dialing
	intentional := s.intentional
	closed := s.closed
	s.mu.Unlock()

	if pendingReconnect != nil {
		pendingReconnect.Stop()
	}
	if pendingDial != nil {
		pendingDial.Stop()
	}
	if cancelled {
		s.setState(StateClosed)
	}
	if online && !was && idle && !intentional && !closed {
		s.logger.Info("host back online, resuming connection")
		s.Connect()
	}
}

// Snapshot is a point-in-time view of the channel for health surfaces.
type Snapshot struct {
	State          State `json:"state"`
	Online         bool  `json:"online"`
	Attempts       int   `json:"reconnect_attempts"`
	QueueDepth     int   `json:"queue_depth"`
	QueueDropped   int64 `json:"queue_dropped"`
	Subscriptions  int   `json:"subscriptions"`
	LastFrameAgeMS int64 `json:"last_frame_age_ms"`
	DedupCacheSize int   `json:"dedup_cache_size"`
}

// Snapshot returns current channel statistics.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	online := s.online
	s.mu.Unlock()

	return Snapshot{
		State:          s.status.get(),
		Online:         online,
		Attempts:       s.sched.attemptCount(),
		QueueDepth:     s.queue.len(),
		QueueDropped:   s.queue.droppedCount(),
		Subscriptions:  s.router.count(),
		LastFrameAgeMS: s.hb.lastFrameAge().Milliseconds(),
		DedupCacheSize: s.dedup.len(),
	}
}

// Close tears the service down for process shutdown: disconnects and stops
// the dedup sweeper. The service cannot be reused afterwards.
func (s *Service) Close() {
	s.Disconnect()
	s.sweepOnce.Do(func() { close(s.sweepStop) })
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// dial runs a single connection attempt for the given generation.
func (s *Service) dial(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if !s.online {
		s.dialing = false
		s.mu.Unlock()
		return
	}
	url := s.cfg.URL
	s.mu.Unlock()

	s.sched.markAttempt()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
	defer cancel()

	t, err := s.cfg.Dialer(ctx, url, Callbacks{
		OnMessage: func(data []byte) { s.handleFrame(gen, data) },
		OnClose:   func(err error) { s.handleClose(gen, err) },
	})

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		if t != nil {
			t.Close()
		}
		return
	}
	s.dialing = false

	if err != nil {
		s.gen++
		intentional := s.intentional
		online := s.online
		s.mu.Unlock()

		s.logger.Warn("connection attempt failed", "url", url, "error", err)
		s.setState(StateError)
		s.setState(StateClosed)
		if intentional || !online {
			return
		}
		s.scheduleReconnect()
		return
	}

	s.transport = t
	s.mu.Unlock()
	s.handleOpen(gen)
}

// handleOpen runs on a successful transport open: reset backoff, start the
// heartbeat, go open, and flush the queue.
func (s *Service) handleOpen(gen uint64) {
	s.sched.reset()
	s.logger.Info("channel open", "url", s.cfg.URL)
	s.hb.start()

	// Sends issued while draining are queued behind the backlog so queued
	// messages are always transmitted first, in insertion order.
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	s.setState(StateOpen)
	s.drain(gen)
}

// drain flushes the backlog until the queue is observed empty in the same
// critical section that clears the draining flag. A send racing with the
// flush either lands before the final emptiness check and is flushed here,
// or after the flag clears and goes out directly.
func (s *Service) drain(gen uint64) {
	for {
		ok := s.flushQueue(gen)

		s.mu.Lock()
		if ok && s.queue.len() > 0 && s.transport != nil && gen == s.gen {
			s.mu.Unlock()
			continue
		}
		s.draining = false
		s.mu.Unlock()
		return
	}
}

// flushQueue drains the outbound queue one send per iteration, stopping
// early (leaving the remainder queued) if the connection stops being open.
// Returns false when a send failed and the flush cannot make progress.
func (s *Service) flushQueue(gen uint64) bool {
	ok := true
	for {
		s.mu.Lock()
		t := s.transport
		stale := gen != s.gen || t == nil
		s.mu.Unlock()
		if stale {
			break
		}

		msg, popped := s.queue.pop()
		if !popped {
			break
		}

		data, err := json.Marshal(msg)
		if err != nil {
			s.logger.Warn("dropping unmarshalable queued message", "error", err)
			continue
		}
		if err := t.Send(data); err != nil {
			s.queue.pushFront(msg)
			s.logger.Warn("queue flush interrupted", "error", err, "remaining", s.queue.len())
			ok = false
			break
		}
		if s.metrics != nil {
			s.metrics.MessagesSent.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.queue.len()))
	}
	return ok
}

// handleClose runs when the transport for the given generation closes or
// errors. Unintentional closes schedule a reconnect.
func (s *Service) handleClose(gen uint64, err error) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	t := s.transport
	s.transport = nil
	s.dialing = false
	intentional := s.intentional
	online := s.online
	s.mu.Unlock()

	s.hb.halt()
	if t != nil {
		t.Close()
	}

	if err != nil && !intentional {
		s.logger.Warn("transport error", "error", err)
		s.setState(StateError)
	}
	s.setState(StateClosed)

	if intentional || !online {
		return
	}
	s.scheduleReconnect()
}

// scheduleReconnect arms the next attempt, or opens the circuit breaker once
// the attempt cap is exceeded.
func (s *Service) scheduleReconnect() {
	delay, circuitOpen := s.sched.failure()
	if circuitOpen {
		s.logger.Warn("reconnect attempt cap exceeded, opening circuit",
			"attempts", s.sched.attemptCount(),
			"cooldown", s.cfg.CircuitCooldown,
		)
		if s.metrics != nil {
			s.metrics.CircuitOpensTotal.Inc()
		}
		s.setState(StateCircuitOpen)
		return
	}

	s.mu.Lock()
	if s.closed || s.intentional || !s.online {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.reconnectTimer = time.AfterFunc(delay, func() { s.reconnectFire(gen) })
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ReconnectsTotal.Inc()
	}
	s.logger.Info("reconnect scheduled",
		"delay", delay,
		"attempt", s.sched.attemptCount(),
	)
}

// reconnectFire runs a scheduled reconnect unless it has gone stale.
func (s *Service) reconnectFire(gen uint64) {
	s.mu.Lock()
	s.reconnectTimer = nil
	stale := s.closed || gen != s.gen || s.intentional || !s.online ||
		s.transport != nil || s.dialing
	s.mu.Unlock()
	if stale {
		return
	}
	s.Connect()
}

// handleFrame processes one inbound frame: liveness, parse, control frames,
// dedup, then dispatch.
func (s *Service) handleFrame(gen uint64, data []byte) {
	s.mu.Lock()
	stale := s.closed || gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	s.hb.touch()
	if s.metrics != nil {
		s.metrics.MessagesReceived.Inc()
	}

	msg, err := decodeMessage(data)
	if err != nil {
		s.logger.Warn("malformed frame dropped", "error", err)
		if s.metrics != nil {
			s.metrics.ParseErrors.Inc()
		}
		return
	}

	// Control frames are consumed here and never reach subscribers.
	if msg.Type == TypePong || msg.Type == TypePing {
		return
	}

	if key, ok := msg.dedupKey(); ok && s.dedup.isDuplicate(key) {
		s.logger.Debug("duplicate notification dropped", "key", key)
		if s.metrics != nil {
			s.metrics.DedupHits.Inc()
		}
		return
	}

	s.router.dispatch(msg)
}

func (s *Service) heartbeatProbe() {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	if t == nil {
		return
	}

	data, _ := json.Marshal(Message{Type: TypePing, Timestamp: time.Now().UnixMilli()})
	if err := t.Send(data); err != nil {
		s.logger.Debug("heartbeat ping failed", "error", err)
	}
}

func (s *Service) heartbeatExpired() {
	s.mu.Lock()
	gen := s.gen
	has := s.transport != nil
	s.mu.Unlock()
	if !has {
		return
	}

	s.logger.Warn("liveness timeout, forcing reconnect",
		"timeout", s.cfg.HeartbeatTimeout,
	)
	s.handleClose(gen, ErrHeartbeatTimeout)
}

func (s *Service) sweepLoop() {
	ticker := time.NewTicker(s.cfg.DedupSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			s.dedup.sweep()
		}
	}
}

// stopTimersLocked cancels any pending reconnect or deferred dial. Caller
// holds s.mu.
func (s *Service) stopTimersLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.dialTimer != nil {
		s.dialTimer.Stop()
		s.dialTimer = nil
	}
}

func (s *Service) setState(state State) {
	s.status.set(state)
	if s.metrics != nil {
		s.metrics.ConnectionState.Set(float64(stateCode(state)))
	}
}

func stateCode(s State) int {
	switch s {
	case StateClosed:
		return 0
	case StateConnecting:
		return 1
	case StateOpen:
		return 2
	case StateClosing:
		return 3
	case StateError:
		return 4
	case StateCircuitOpen:
		return 5
	}
	return -1
}
