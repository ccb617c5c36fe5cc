package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// Tor runs an embedded Tor daemon whose SOCKS port can back a Client.
// Bootstrapping takes from tens of seconds to a few minutes.
type Tor struct {
	mu             sync.Mutex
	process        *tornago.TorProcess
	startupTimeout time.Duration
}

// NewTor returns an unstarted daemon manager. A non-positive timeout uses
// config.DefaultTorStartupTimeout.
func NewTor(startupTimeout time.Duration) *Tor {
	if startupTimeout <= 0 {
		startupTimeout = 3 * time.Minute
	}
	return &Tor{startupTimeout: startupTimeout}
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped, the startup timeout elapses or ctx is cancelled.
func (t *Tor) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.process != nil {
		return nil
	}

	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(t.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	type result struct {
		process *tornago.TorProcess
		err     error
	}
	done := make(chan result, 1)
	go func() {
		p, err := tornago.StartTorDaemon(launchCfg)
		done <- result{p, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", r.err)
		}
		t.process = r.process
		return nil
	case <-ctx.Done():
		// The daemon may still come up; stop it once it does.
		go func() {
			if r := <-done; r.err == nil {
				_ = r.process.Stop() //nolint:errcheck // best effort
			}
		}()
		return ctx.Err()
	}
}

// Stop shuts the daemon down. It is safe on an unstarted or stopped Tor.
func (t *Tor) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.process == nil {
		return nil
	}
	err := t.process.Stop()
	t.process = nil
	return err
}

// Running reports whether the daemon is up.
func (t *Tor) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.process != nil
}

// SocksAddr is the daemon's SOCKS5 address, or "" when it is not running.
func (t *Tor) SocksAddr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.process == nil {
		return ""
	}
	return t.process.SocksAddr()
}

// ProxyOption returns the client option that routes through this daemon.
func (t *Tor) ProxyOption() (Option, error) {
	addr := t.SocksAddr()
	if addr == "" {
		return nil, ErrTorNotRunning
	}
	return WithSOCKS5Proxy(addr), nil
}
