// Package ratelimiter decides whether a newly accepted connection may be
// handed to the request engine.
//
// The engine serves exactly one client at a time, so a flood of connections
// only costs the accept path. Admission applies a global token bucket and,
// optionally, a smaller bucket per remote host so that one peer cannot starve
// the others.
package ratelimiter

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimited stands in for rate.Inf, which disables burst accounting entirely.
const unlimited = 1_000_000_000

// Config controls connection admission.
type Config struct {
	// Rate is the sustained number of admitted connections per second.
	// Zero disables limiting.
	Rate float64
	// Burst is the bucket capacity. Zero means max(1, Rate).
	Burst int
	// PerHostRate limits each remote host separately. Zero disables it.
	PerHostRate float64
	// PerHostBurst is the per-host bucket capacity.
	PerHostBurst int
	// IdleEviction is how long an unused per-host bucket is kept.
	IdleEviction time.Duration
}

type hostBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Admission is a connection admission limiter. Safe for concurrent use.
type Admission struct {
	global *rate.Limiter

	mu        sync.Mutex
	hosts     map[string]*hostBucket
	cfg       Config
	lastSweep time.Time
	now       func() time.Time
}

// New creates an Admission limiter from cfg.
func New(cfg Config) *Admission {
	if cfg.IdleEviction <= 0 {
		cfg.IdleEviction = time.Minute
	}
	return &Admission{
		global: newLimiter(cfg.Rate, cfg.Burst),
		hosts:  make(map[string]*hostBucket),
		cfg:    cfg,
		now:    time.Now,
	}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Limit(unlimited), unlimited)
	}
	if burst <= 0 {
		burst = max(1, int(perSecond))
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Admit reports whether a connection from remote may proceed. A token is
// consumed from the global bucket only when the per-host bucket allows it.
func (a *Admission) Admit(remote net.Addr) bool {
	now := a.now()

	if a.cfg.PerHostRate > 0 {
		if !a.hostLimiter(hostOf(remote), now).AllowN(now, 1) {
			return false
		}
	}
	return a.global.AllowN(now, 1)
}

// Tracked returns the number of per-host buckets currently held.
func (a *Admission) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.hosts)
}

func (a *Admission) hostLimiter(host string, now time.Time) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	if now.Sub(a.lastSweep) >= a.cfg.IdleEviction {
		for h, b := range a.hosts {
			if now.Sub(b.lastSeen) >= a.cfg.IdleEviction {
				delete(a.hosts, h)
			}
		}
		a.lastSweep = now
	}

	b, ok := a.hosts[host]
	if !ok {
		b = &hostBucket{limiter: newLimiter(a.cfg.PerHostRate, a.cfg.PerHostBurst)}
		a.hosts[host] = b
	}
	b.lastSeen = now
	return b.limiter
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
