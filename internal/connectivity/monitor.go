// Package connectivity decides whether the Recur API is reachable and tells
// the offline queue. It is the only writer of the queue's online state in a
// running daemon.
//
// A probe is a GET /health with its own timeout; any error (transport or
// non-2xx) counts as offline. The listener is notified on the first probe and
// on every change after that.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Prober checks reachability. *remote.Client implements it.
type Prober interface {
	Health(ctx context.Context) error
}

// Listener receives connectivity changes. *services.SyncQueue implements it.
type Listener interface {
	SetOnlineStatus(ctx context.Context, online bool)
}

const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 5 * time.Second
)

var onlineGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "recur_remote_online",
	Help: "1 when the last connectivity probe succeeded, 0 otherwise.",
})

func init() {
	prometheus.MustRegister(onlineGauge)
}

// Monitor periodically probes the API.
type Monitor struct {
	prober   Prober
	listener Listener
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	known  bool
	online bool
}

// NewMonitor builds a Monitor. Non-positive durations use the defaults.
func NewMonitor(p Prober, l Listener, interval, timeout time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{
		prober:   p,
		listener: l,
		interval: interval,
		timeout:  timeout,
		log:      log.With().Str("component", "connectivity").Logger(),
	}
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.ProbeOnce(ctx)

	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.ProbeOnce(ctx)
		}
	}
}

// ProbeOnce runs a single probe, notifies the listener if the state changed
// (or was unknown) and returns the observed state.
func (m *Monitor) ProbeOnce(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Health(pctx)
	cancel()

	// Shutting down is not an outage.
	if ctx.Err() != nil {
		online, _ := m.Current()
		return online
	}
	online := err == nil

	m.mu.Lock()
	changed := !m.known || m.online != online
	m.known = true
	m.online = online
	m.mu.Unlock()

	if online {
		onlineGauge.Set(1)
	} else {
		onlineGauge.Set(0)
	}
	if !changed {
		return online
	}

	ev := m.log.Info()
	if !online {
		ev = m.log.Warn().Err(err)
	}
	ev.Bool("online", online).Msg("connectivity probe changed state")
	m.listener.SetOnlineStatus(ctx, online)
	return online
}

// Current returns the last observed state and whether any probe has
// completed yet.
func (m *Monitor) Current() (online, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, m.known
}
