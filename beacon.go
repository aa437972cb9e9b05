// Package beacon is a multicast DNS (RFC 6762) and DNS-SD (RFC 6763)
// responder: it advertises services on the local link and answers
// queries for them. It does not browse or resolve other responders'
// services — pair it with a separate mDNS client for that.
package beacon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	ierrors "github.com/driftwood-systems/beacon/internal/errors"
	"github.com/driftwood-systems/beacon/internal/network"
	"github.com/driftwood-systems/beacon/internal/protocol"
	"github.com/driftwood-systems/beacon/internal/registry"
	"github.com/driftwood-systems/beacon/internal/respond"
	"github.com/driftwood-systems/beacon/internal/security"
	"github.com/driftwood-systems/beacon/internal/transport"
)

// Start resolves the configured interfaces, opens a multicast socket per
// enabled address family, and runs the responder's event loop in a
// background goroutine. hostname is normalized to end in ".local" (no
// trailing root dot) if it doesn't already. Socket or interface-join failures for any enabled
// family are fatal: Start returns a non-nil error and no Handle.
func Start(ctx context.Context, hostname string, opts ...Option) (*Handle, error) {
	cfg := defaultConfig(normalizeHostname(hostname))
	for _, opt := range opts {
		opt(cfg)
	}

	ifaces, err := resolveInterfaces(cfg.interfaces)
	if err != nil {
		return nil, &SocketInitError{Err: err}
	}

	var sockets []respond.FamilySocket
	closeAll := func() {
		for _, fs := range sockets {
			_ = fs.Conn.Close()
		}
	}

	if cfg.enableV4 {
		fs, err := openFamily(protocol.FamilyV4, ifaces, cfg)
		if err != nil {
			closeAll()
			return nil, err
		}
		sockets = append(sockets, fs)
	}
	if cfg.enableV6 {
		fs, err := openFamily(protocol.FamilyV6, ifaces, cfg)
		if err != nil {
			closeAll()
			return nil, err
		}
		sockets = append(sockets, fs)
	}
	if len(sockets) == 0 {
		return nil, &NoInterfacesJoinedError{}
	}

	machine := respond.New(respond.Config{
		Hostname:    cfg.hostname,
		Sockets:     sockets,
		RateLimiter: cfg.rateLimiter(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		machine.Run(runCtx)
	}()

	return &Handle{machine: machine, cancel: cancel, done: done}, nil
}

// openFamily opens a bound, group-joined socket for family and collects
// the pieces respond.FamilySocket needs: the bound addresses (to answer
// hostname A/AAAA queries) and a source filter per interface (to reject
// off-link queriers before they reach the codec).
func openFamily(family protocol.Family, ifaces []net.Interface, cfg *config) (respond.FamilySocket, error) {
	sock, err := transport.Open(family, ifaces, cfg.multicastLoop, cfg.ttl)
	if err != nil {
		var netErr *ierrors.NetworkError
		if errors.As(err, &netErr) && netErr.Operation == "join multicast group" {
			return respond.FamilySocket{}, &NoInterfacesJoinedError{Family: family}
		}
		return respond.FamilySocket{}, &SocketInitError{Family: family, Err: err}
	}

	filters := make([]*security.SourceFilter, 0, len(ifaces))
	for _, iface := range ifaces {
		f, err := security.NewSourceFilter(iface)
		if err != nil {
			continue
		}
		filters = append(filters, f)
	}

	return respond.FamilySocket{
		Family:        family,
		Conn:          sock,
		Addrs:         familyAddrs(ifaces, family),
		SourceFilters: filters,
	}, nil
}

// familyAddrs collects every address of family bound to any interface in
// ifaces, for answering direct hostname A/AAAA queries.
func familyAddrs(ifaces []net.Interface, family protocol.Family) []net.IP {
	var out []net.IP
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			isV4 := ipnet.IP.To4() != nil
			if family == protocol.FamilyV4 && isV4 {
				out = append(out, ipnet.IP)
			}
			if family == protocol.FamilyV6 && !isV4 {
				out = append(out, ipnet.IP)
			}
		}
	}
	return out
}

// normalizeHostname ensures hostname ends in the ".local" label this
// codebase's names are joined without a trailing root dot (matching
// internal/dnscodec's convention).
func normalizeHostname(hostname string) string {
	hostname = strings.TrimSuffix(hostname, ".")
	if strings.HasSuffix(strings.ToLower(hostname), ".local") {
		return hostname
	}
	return hostname + ".local"
}

func resolveInterfaces(names []string) ([]net.Interface, error) {
	if len(names) == 0 {
		return network.DefaultInterfaces()
	}

	out := make([]net.Interface, 0, len(names))
	for _, name := range names {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", name, err)
		}
		out = append(out, *iface)
	}
	return out, nil
}

// Handle is a running responder. Register/Unregister services against
// it; call Shutdown to stop and release its sockets.
type Handle struct {
	machine *respond.Machine
	cancel  context.CancelFunc
	done    chan struct{}
}

// Register adds a service to the responder's registry and sends one
// unsolicited announcement of its record set. The returned ServiceToken
// is the caller's handle on the registration: Release (or garbage
// collection, best-effort) unregisters it.
func (h *Handle) Register(serviceType, instanceName string, port uint16, txt []string) (*ServiceToken, error) {
	if err := protocol.ValidateServiceType(serviceType); err != nil {
		return nil, &InvalidServiceTypeError{ServiceType: serviceType, Reason: err.Error()}
	}
	if instanceName == "" || len(instanceName) > protocol.MaxLabelLength {
		return nil, &InvalidServiceTypeError{ServiceType: serviceType, Reason: fmt.Sprintf("instance name must be 1 to %d bytes", protocol.MaxLabelLength)}
	}
	for _, entry := range txt {
		if len(entry) > protocol.MaxTXTEntryLength {
			return nil, &TxtEntryTooLongError{Entry: entry}
		}
	}

	replyCh := make(chan respond.Reply, 1)
	cmd := respond.Command{
		Kind: respond.CmdRegister,
		Register: respond.RegisterRequest{
			InstanceName: instanceName,
			ServiceType:  serviceType,
			Port:         port,
			TXT:          txt,
		},
		Reply: replyCh,
	}
	if err := h.machine.Submit(context.Background(), cmd); err != nil {
		return nil, &ShutdownError{}
	}

	reply := <-replyCh
	if reply.Err != nil {
		if errors.Is(reply.Err, registry.ErrDuplicate) {
			return nil, &DuplicateError{InstanceName: instanceName}
		}
		return nil, reply.Err
	}

	token := &ServiceToken{id: reply.ID, uuid: uuid.New(), handle: h}
	runtime.SetFinalizer(token, func(t *ServiceToken) { _ = t.Release() })
	return token, nil
}

// Unregister removes the service registered under id. Prefer releasing
// the ServiceToken returned by Register; this is exposed directly for
// the id-based API shape §6.1 describes.
func (h *Handle) Unregister(id uint64) error {
	replyCh := make(chan respond.Reply, 1)
	cmd := respond.Command{Kind: respond.CmdUnregister, ID: id, Reply: replyCh}
	if err := h.machine.Submit(context.Background(), cmd); err != nil {
		return &ShutdownError{}
	}

	reply := <-replyCh
	if reply.Err != nil {
		if errors.Is(reply.Err, registry.ErrNotFound) {
			return &UnknownError{ID: id}
		}
		return reply.Err
	}
	return nil
}

// Shutdown submits a drain command and blocks until the event loop has
// closed every socket and returned. If ctx is done first, the event loop
// is canceled instead; Shutdown still waits for it to return and then
// reports ctx's error.
func (h *Handle) Shutdown(ctx context.Context) error {
	replyCh := make(chan respond.Reply, 1)
	if err := h.machine.Submit(ctx, respond.Command{Kind: respond.CmdShutdown, Reply: replyCh}); err != nil {
		h.cancel()
	} else {
		select {
		case <-replyCh:
		case <-ctx.Done():
		}
	}

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		h.cancel()
		<-h.done
		return ctx.Err()
	}
}

// ServiceToken is the caller's handle on one registration. Per §6.1,
// dropping it should best-effort unregister the service; Go has no
// deterministic destructors, so Release does this explicitly and a
// runtime.SetFinalizer backs it up if the caller never calls Release.
type ServiceToken struct {
	id     uint64
	uuid   uuid.UUID
	handle *Handle

	mu       sync.Mutex
	released bool
}

// ID returns the registry id this token owns.
func (t *ServiceToken) ID() uint64 { return t.id }

// UUID returns the token's opaque external identifier. It has no
// relationship to the registry id beyond both naming the same
// registration; it exists so callers never need to reason about the
// internal monotonic counter.
func (t *ServiceToken) UUID() uuid.UUID { return t.uuid }

// Release unregisters the service. Safe to call more than once or
// concurrently; only the first call has effect.
func (t *ServiceToken) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.released = true
	runtime.SetFinalizer(t, nil)
	return t.handle.Unregister(t.id)
}
