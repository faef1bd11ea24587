package channel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeatMonitor_ProbesWhileLive(t *testing.T) {
	var probes, expirations int32

	h := newHeartbeatMonitor(10*time.Millisecond, time.Second,
		func() { atomic.AddInt32(&probes, 1) },
		func() { atomic.AddInt32(&expirations, 1) },
	)
	h.start()
	defer h.halt()

	// Keep the liveness timestamp fresh while probes run.
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		h.touch()
		time.Sleep(5 * time.Millisecond)
	}

	if atomic.LoadInt32(&probes) == 0 {
		t.Error("expected at least one probe")
	}
	if atomic.LoadInt32(&expirations) != 0 {
		t.Error("live connection must not expire")
	}
}

func TestHeartbeatMonitor_ExpiresOnSilence(t *testing.T) {
	var expirations int32

	h := newHeartbeatMonitor(10*time.Millisecond, 5*time.Millisecond,
		func() {},
		func() { atomic.AddInt32(&expirations, 1) },
	)
	h.start()
	defer h.halt()

	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Errorf("expirations = %d, want 1 (monitor stops after firing)", got)
	}
}

func TestHeartbeatMonitor_HaltStopsProbes(t *testing.T) {
	var probes int32

	h := newHeartbeatMonitor(5*time.Millisecond, time.Second,
		func() { atomic.AddInt32(&probes, 1) },
		func() {},
	)
	h.start()
	time.Sleep(20 * time.Millisecond)
	h.halt()

	settled := atomic.LoadInt32(&probes)
	time.Sleep(30 * time.Millisecond)

	if got := atomic.LoadInt32(&probes); got != settled {
		t.Errorf("probes after halt = %d, want %d", got, settled)
	}
}
