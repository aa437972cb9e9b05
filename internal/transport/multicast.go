// Package transport binds the mDNS multicast socket and moves datagrams
// on and off the wire. The same Socket type serves both address
// families; family-specific group membership and TTL/hop-limit control
// is delegated to golang.org/x/net/ipv4 or golang.org/x/net/ipv6.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/driftwood-systems/beacon/internal/errors"
	"github.com/driftwood-systems/beacon/internal/protocol"
)

// DefaultMulticastTTL is the IP TTL / hop limit mDNS packets are sent
// with by default.
//
// RFC 6762 §11: Multicast DNS messages MUST be sent with TTL (IPv4) or
// hop limit (IPv6) of 255, so a receiver can detect and discard any
// packet that arrived from outside the local link. Overriding it is a
// spec non-goal for the DNS record TTLs, but the IP-level value is
// still exposed to callers since some link types (a VM bridge, a
// userspace NAT) are known to need a lower hop count in practice.
const DefaultMulticastTTL = 255

// Conn is the minimal send/receive/close surface the responder needs
// from a socket. Socket implements it against the real network; Mock
// implements it for tests.
type Conn interface {
	Send(ctx context.Context, packet []byte, dest net.Addr) error
	Receive(ctx context.Context) ([]byte, net.Addr, error)
	Close() error
}

// Socket is a bound, group-joined mDNS multicast socket for one address
// family.
type Socket struct {
	conn  net.PacketConn
	pc4   *ipv4.PacketConn
	pc6   *ipv6.PacketConn
	group *net.UDPAddr
}

var _ Conn = (*Socket)(nil)

// Open binds a multicast socket for family and joins the mDNS group on
// every interface in ifaces. Binding goes through a platform-specific
// net.ListenConfig.Control so SO_REUSEADDR/SO_REUSEPORT are set before
// bind, letting the responder coexist with Avahi, Bonjour, and
// systemd-resolved on the same port. ttl sets the outgoing IP TTL
// (v4) / hop limit (v6); pass DefaultMulticastTTL unless a caller has
// a specific reason to lower it. Returns a NetworkError wrapping
// NoInterfacesJoined-shaped detail if the group could not be joined on
// any interface.
func Open(family protocol.Family, ifaces []net.Interface, loopback bool, ttl int) (*Socket, error) {
	lc := net.ListenConfig{Control: PlatformControl}
	conn, err := lc.ListenPacket(context.Background(), family.Network(), family.BindAddress())
	if err != nil {
		return nil, &errors.NetworkError{
			Operation: "bind socket",
			Err:       err,
			Details:   fmt.Sprintf("bind %s on %s", family.BindAddress(), family.Network()),
		}
	}

	s := &Socket{conn: conn, group: family.GroupAddr()}

	var joined int
	switch family {
	case protocol.FamilyV4:
		s.pc4 = ipv4.NewPacketConn(conn)
		for _, iface := range ifaces {
			ifaceCopy := iface
			if err := s.pc4.JoinGroup(&ifaceCopy, s.group); err == nil {
				joined++
			}
		}
		if joined > 0 {
			if err := s.pc4.SetMulticastTTL(ttl); err != nil {
				_ = conn.Close()
				return nil, &errors.NetworkError{Operation: "set multicast ttl", Err: err}
			}
			if err := s.pc4.SetMulticastLoopback(loopback); err != nil {
				_ = conn.Close()
				return nil, &errors.NetworkError{Operation: "set multicast loopback", Err: err}
			}
		}
	case protocol.FamilyV6:
		s.pc6 = ipv6.NewPacketConn(conn)
		for _, iface := range ifaces {
			ifaceCopy := iface
			if err := s.pc6.JoinGroup(&ifaceCopy, s.group); err == nil {
				joined++
			}
		}
		if joined > 0 {
			if err := s.pc6.SetMulticastHopLimit(ttl); err != nil {
				_ = conn.Close()
				return nil, &errors.NetworkError{Operation: "set multicast hop limit", Err: err}
			}
			if err := s.pc6.SetMulticastLoopback(loopback); err != nil {
				_ = conn.Close()
				return nil, &errors.NetworkError{Operation: "set multicast loopback", Err: err}
			}
		}
	}

	if joined == 0 {
		_ = conn.Close()
		return nil, &errors.NetworkError{
			Operation: "join multicast group",
			Err:       fmt.Errorf("no interfaces joined"),
			Details:   fmt.Sprintf("%s on %s", s.group.IP, family),
		}
	}

	return s, nil
}

// Group is the multicast destination address packets are sent to by
// default (224.0.0.251:5353 or [ff02::fb]:5353).
func (s *Socket) Group() *net.UDPAddr {
	return s.group
}

// Send writes packet to dest, which is ordinarily Group() but may be a
// unicast address when answering a query with the QU bit set.
func (s *Socket) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &errors.NetworkError{Operation: "send", Err: ctx.Err(), Details: "context canceled before send"}
	default:
	}

	n, err := s.conn.WriteTo(packet, dest)
	if err != nil {
		return &errors.NetworkError{Operation: "send", Err: err, Details: fmt.Sprintf("%d bytes to %s", len(packet), dest)}
	}
	if n != len(packet) {
		return &errors.NetworkError{Operation: "send", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(packet))}
	}
	return nil
}

// Receive blocks for one datagram, honoring ctx's deadline. The
// returned slice is owned by the caller; the read buffer itself is
// pooled.
func (s *Socket) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &errors.NetworkError{Operation: "receive", Err: ctx.Err(), Details: "context canceled before receive"}
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &errors.NetworkError{Operation: "set read deadline", Err: err}
		}
	} else if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, nil, &errors.NetworkError{Operation: "clear read deadline", Err: err}
	}

	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	buf := *bufPtr

	n, addr, err := s.conn.ReadFrom(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil, &errors.NetworkError{Operation: "receive", Err: err, Details: "timeout"}
		}
		return nil, nil, &errors.NetworkError{Operation: "receive", Err: err}
	}

	out := make([]byte, n)
	copy(out, buf[:n])
	return out, addr, nil
}

// Close releases the underlying socket.
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close socket", Err: err}
	}
	return nil
}
