package beacon

import (
	"time"

	"github.com/driftwood-systems/beacon/internal/security"
	"github.com/driftwood-systems/beacon/internal/transport"
)

// Default rate-limiting parameters, carried over from the teacher's
// internal/security defaults: 100 qps per source, 60s cooldown once
// exceeded, 10k tracked source IPs.
const (
	defaultRateLimitThreshold = 100
	defaultRateLimitCooldown  = 60 * time.Second
	defaultRateLimitMaxEntries = 10000
)

// config is the resolved option set Start builds sockets and the
// Machine from. It is never exposed directly; callers only see Option.
type config struct {
	hostname      string
	enableV4      bool
	enableV6      bool
	interfaces    []string // nil/empty means "all" (network.DefaultInterfaces)
	ttl           int
	multicastLoop bool

	rateLimitThreshold int // 0 disables rate limiting
	rateLimitCooldown  time.Duration
}

func defaultConfig(hostname string) *config {
	return &config{
		hostname:           hostname,
		enableV4:           true,
		enableV6:           true,
		ttl:                transport.DefaultMulticastTTL,
		multicastLoop:      true,
		rateLimitThreshold: defaultRateLimitThreshold,
		rateLimitCooldown:  defaultRateLimitCooldown,
	}
}

func (c *config) rateLimiter() *security.RateLimiter {
	if c.rateLimitThreshold <= 0 {
		return nil
	}
	return security.NewRateLimiter(c.rateLimitThreshold, c.rateLimitCooldown, defaultRateLimitMaxEntries)
}

// Option configures a responder started with Start.
type Option func(*config)

// WithV4 enables or disables the IPv4 multicast socket. Enabled by
// default.
func WithV4(enable bool) Option {
	return func(c *config) { c.enableV4 = enable }
}

// WithV6 enables or disables the IPv6 multicast socket. Enabled by
// default.
func WithV6(enable bool) Option {
	return func(c *config) { c.enableV6 = enable }
}

// WithInterfaces restricts the responder to the named interfaces
// instead of network.DefaultInterfaces' up/multicast/non-VPN heuristic.
func WithInterfaces(names []string) Option {
	return func(c *config) { c.interfaces = names }
}

// WithTTL sets the outgoing IP TTL (v4) / hop limit (v6) packets are
// sent with. This is the multicast TTL of §6.2, not the DNS record TTL
// (PTR/SRV/TXT/A/AAAA TTLs are fixed per RFC 6762 §10 and not
// caller-overridable).
func WithTTL(ttl uint32) Option {
	return func(c *config) { c.ttl = int(ttl) }
}

// WithMulticastLoop enables or disables multicast loopback, useful for
// exercising a responder against itself on one host. Enabled by
// default.
func WithMulticastLoop(loop bool) Option {
	return func(c *config) { c.multicastLoop = loop }
}

// WithHostname overrides the hostname given to Start, normalized the same
// way Start's positional hostname argument is.
func WithHostname(hostname string) Option {
	return func(c *config) { c.hostname = normalizeHostname(hostname) }
}

// WithRateLimit overrides the per-source-IP rate-limiting threshold and
// cooldown. A threshold of 0 disables rate limiting entirely.
func WithRateLimit(threshold int, cooldown time.Duration) Option {
	return func(c *config) {
		c.rateLimitThreshold = threshold
		c.rateLimitCooldown = cooldown
	}
}
