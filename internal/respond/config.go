package respond

import (
	"net"

	"github.com/driftwood-systems/beacon/internal/protocol"
	"github.com/driftwood-systems/beacon/internal/security"
	"github.com/driftwood-systems/beacon/internal/transport"
)

// FamilySocket pairs a bound, group-joined socket with the addresses it
// is reachable at. Addrs is needed to answer hostname A/AAAA queries:
// the response carries one address record per bound interface address
// of the matching family, not just the first one found.
type FamilySocket struct {
	Family protocol.Family
	Conn   transport.Conn
	Addrs  []net.IP

	// SourceFilters validates inbound packet sources for this family, one
	// per joined interface. A packet failing every filter is dropped
	// before it reaches the codec.
	SourceFilters []*security.SourceFilter
}

// Config is everything a Machine needs to run. It is assembled once by
// the caller (ordinarily the root package's Start) and not mutated
// afterward.
type Config struct {
	Hostname string

	// Sockets holds one entry per enabled address family. A Machine with
	// no sockets can still process commands but answers no queries.
	Sockets []FamilySocket

	// RateLimiter, when non-nil, gates inbound packets by source IP
	// before they are parsed.
	RateLimiter *security.RateLimiter
}
