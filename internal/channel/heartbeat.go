package channel

import (
	"sync"
	"time"
)

// heartbeatMonitor probes connection liveness while the channel is open.
// Any inbound frame refreshes the liveness timestamp, not only pong replies,
// so the heartbeat is a general liveness signal rather than a strict
// ping/pong protocol.
type heartbeatMonitor struct {
	interval time.Duration
	timeout  time.Duration
	probe    func()
	expired  func()
	now      func() time.Time

	mu        sync.Mutex
	lastFrame time.Time
	stop      chan struct{}
}

func newHeartbeatMonitor(interval, timeout time.Duration, probe, expired func()) *heartbeatMonitor {
	return &heartbeatMonitor{
		interval: interval,
		timeout:  timeout,
		probe:    probe,
		expired:  expired,
		now:      time.Now,
	}
}

// start begins the periodic probe. A monitor already running is restarted
// against the new connection.
func (h *heartbeatMonitor) start() {
	h.mu.Lock()
	if h.stop != nil {
		close(h.stop)
	}
	stop := make(chan struct{})
	h.stop = stop
	h.lastFrame = h.now()
	h.mu.Unlock()

	go h.run(stop)
}

// halt stops the monitor so it cannot fire against a stale transport.
func (h *heartbeatMonitor) halt() {
	h.mu.Lock()
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
	h.mu.Unlock()
}

// touch records receipt of an inbound frame.
func (h *heartbeatMonitor) touch() {
	h.mu.Lock()
	h.lastFrame = h.now()
	h.mu.Unlock()
}

// lastFrameAge returns the elapsed time since the last inbound frame.
func (h *heartbeatMonitor) lastFrameAge() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastFrame.IsZero() {
		return 0
	}
	return h.now().Sub(h.lastFrame)
}

func (h *heartbeatMonitor) run(stop chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			elapsed := h.now().Sub(h.lastFrame)
			h.mu.Unlock()

			if elapsed > h.timeout {
				h.expired()
				return
			}
			h.probe()
		}
	}
}
