package respond

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/driftwood-systems/beacon/internal/dnscodec"
	"github.com/driftwood-systems/beacon/internal/protocol"
	"github.com/driftwood-systems/beacon/internal/registry"
)

// ErrStopped is returned by Submit once Run has returned: nothing is
// left to read the command channel, so blocking on it would wedge the
// caller forever instead of reporting the responder as gone.
var ErrStopped = errors.New("respond: machine has stopped")

// commandQueueSize bounds the Machine's command channel. Registrations
// are not a hot path, so a modestly sized buffer behaves as
// unbounded in practice; Submit blocks (honoring the caller's context)
// rather than dropping a command if it ever fills.
const commandQueueSize = 32

// inboundPacket is one datagram read off a FamilySocket, tagged with
// which socket it arrived on so the response can be matched and
// addressed correctly.
type inboundPacket struct {
	socket *FamilySocket
	data   []byte
	addr   net.Addr
}

// Machine is the responder's event loop: one per running responder. It
// owns the registry and every configured socket, and processes inbound
// datagrams and commands one at a time.
type Machine struct {
	cfg      Config
	registry *registry.Registry
	commands chan Command
	stopped  chan struct{}

	mu    sync.RWMutex
	state State
}

// New creates a Machine in StateIdle. Run must be called to start
// processing.
func New(cfg Config) *Machine {
	return &Machine{
		cfg:      cfg,
		registry: registry.New(),
		commands: make(chan Command, commandQueueSize),
		stopped:  make(chan struct{}),
	}
}

// State returns the Machine's current lifecycle state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Submit enqueues cmd for processing by Run's event loop, blocking until
// it is accepted, ctx is done, or the Machine has already stopped.
// cmd.Reply (if non-nil) receives exactly one Reply once the command
// has been handled.
func (m *Machine) Submit(ctx context.Context, cmd Command) error {
	// Checked first: once stopped, the buffered channel may still have
	// room, and a select over both would accept the command at random.
	select {
	case <-m.stopped:
		return ErrStopped
	default:
	}

	select {
	case m.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrStopped
	}
}

// Run is the Machine's event loop. It blocks until ctx is canceled or a
// CmdShutdown command is processed, then drains: every socket is closed
// (ctx.Done() alone cannot interrupt a blocked socket read; the receive
// goroutines only return once their Conn is closed) and its receive
// goroutines joined before Run returns.
func (m *Machine) Run(ctx context.Context) {
	m.setState(StateRunning)
	defer close(m.stopped)

	recvCtx, cancelRecv := context.WithCancel(ctx)
	inbound := make(chan inboundPacket)

	var wg sync.WaitGroup
	for i := range m.cfg.Sockets {
		fs := &m.cfg.Sockets[i]
		wg.Add(1)
		go func(fs *FamilySocket) {
			defer wg.Done()
			recvLoop(recvCtx, fs, inbound)
		}(fs)
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case pkt := <-inbound:
			m.handlePacket(ctx, pkt)
		case cmd := <-m.commands:
			if m.handleCommand(ctx, cmd) {
				break loop
			}
		}
	}

	m.setState(StateDraining)
	cancelRecv()
	for i := range m.cfg.Sockets {
		_ = m.cfg.Sockets[i].Conn.Close()
	}
	wg.Wait()
	m.setState(StateTerminated)
}

// recvLoop reads datagrams from fs.Conn until ctx is done, forwarding
// each to out. A read error other than context cancellation is logged
// and ignored; one bad or slow socket never stops the others.
func recvLoop(ctx context.Context, fs *FamilySocket, out chan<- inboundPacket) {
	for {
		data, addr, err := fs.Conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Debug("receive failed", "family", fs.Family, "error", err)
			continue
		}

		select {
		case out <- inboundPacket{socket: fs, data: data, addr: addr}:
		case <-ctx.Done():
			return
		}
	}
}

// handleCommand applies cmd to the registry and replies. It returns true
// if the event loop should stop after this command (CmdShutdown).
func (m *Machine) handleCommand(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case CmdRegister:
		entry := &registry.Entry{
			InstanceName: cmd.Register.InstanceName,
			ServiceType:  cmd.Register.ServiceType,
			Port:         cmd.Register.Port,
			TXT:          cmd.Register.TXT,
		}
		id, err := m.registry.Register(entry)
		if err == nil {
			entry.ID = id
			m.announce(ctx, entry)
		}
		reply(cmd, Reply{ID: id, Err: err})
		return false

	case CmdUnregister:
		err := m.registry.Remove(cmd.ID)
		reply(cmd, Reply{Err: err})
		return false

	case CmdShutdown:
		reply(cmd, Reply{})
		return true

	default:
		return false
	}
}

// handlePacket validates, parses, matches, and answers one inbound
// datagram. Any failure along the way — a filtered source, a rate
// limit, a parse error, a non-query message, a query with no matching
// records — is handled by dropping the packet silently; nothing here
// ever propagates an error up to Run.
func (m *Machine) handlePacket(ctx context.Context, pkt inboundPacket) {
	srcIP := sourceIP(pkt.addr)

	if !m.sourceAllowed(pkt.socket, srcIP) {
		return
	}
	if m.cfg.RateLimiter != nil && srcIP != nil && !m.cfg.RateLimiter.Allow(srcIP.String()) {
		return
	}

	msg, err := dnscodec.Parse(pkt.data)
	if err != nil {
		slog.Debug("dropping unparseable datagram", "error", err)
		return
	}
	if !msg.IsQuery() || len(msg.Questions) == 0 {
		return
	}

	answers, additionals := buildAnswers(&m.cfg, m.registry, msg)
	answers = filterKnownAnswers(answers, msg.Answers)
	if len(answers) == 0 {
		return
	}
	additionals = filterKnownAnswers(additionals, msg.Answers)

	packet, err := dnscodec.Build(msg.ID, protocol.FlagQR|protocol.FlagAA, answers, nil, additionals)
	if err != nil {
		slog.Debug("dropping response, failed to encode", "error", err)
		return
	}

	dest := responseDestination(pkt, msg, srcIP)
	if err := pkt.socket.Conn.Send(ctx, packet, dest); err != nil {
		slog.Debug("response send failed", "error", err)
	}
}

// sourceAllowed reports whether srcIP passes at least one of sock's
// configured source filters. A socket with no filters configured (as in
// tests run against a Mock with no real interfaces) allows everything.
func (m *Machine) sourceAllowed(sock *FamilySocket, srcIP net.IP) bool {
	if len(sock.SourceFilters) == 0 || srcIP == nil {
		return true
	}
	for _, f := range sock.SourceFilters {
		if f.IsValid(srcIP) {
			return true
		}
	}
	return false
}

// responseDestination picks a unicast reply to the querier if any
// question in msg set the QU bit and the querier is link-local (RFC
// 6762 §5.4), falling back to the family's multicast group otherwise.
func responseDestination(pkt inboundPacket, msg *dnscodec.Message, srcIP net.IP) net.Addr {
	wantsUnicast := false
	for _, q := range msg.Questions {
		if q.Unicast {
			wantsUnicast = true
			break
		}
	}
	if wantsUnicast && srcIP != nil && srcIP.IsLinkLocalUnicast() {
		return pkt.addr
	}
	return pkt.socket.Family.GroupAddr()
}

func sourceIP(addr net.Addr) net.IP {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return nil
	}
	return udpAddr.IP
}
