package transport

import (
	"context"
	"net"
	"sync"
)

// Mock is a test double for Conn. It records every Send() call and
// replays a queued sequence of packets from Receive(), so responder
// tests can exercise query handling without a real socket.
type Mock struct {
	mu        sync.Mutex
	sendCalls []SendCall
	inbox     []SendCall
	closed    bool
}

// SendCall records a single Send() invocation, or a queued inbound
// packet when used via Deliver/Receive.
type SendCall struct {
	Packet []byte
	Dest   net.Addr
}

// NewMock creates an empty mock socket.
func NewMock() *Mock {
	return &Mock{}
}

// Send records the call for later inspection via SendCalls.
func (m *Mock) Send(_ context.Context, packet []byte, dest net.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendCalls = append(m.sendCalls, SendCall{
		Packet: append([]byte(nil), packet...),
		Dest:   dest,
	})
	return nil
}

// Deliver queues a packet to be returned by the next Receive call, as
// if it had arrived from src.
func (m *Mock) Deliver(packet []byte, src net.Addr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = append(m.inbox, SendCall{Packet: packet, Dest: src})
}

// Receive returns the next queued packet, blocking until ctx is done if
// nothing is queued.
func (m *Mock) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	m.mu.Lock()
	if len(m.inbox) > 0 {
		next := m.inbox[0]
		m.inbox = m.inbox[1:]
		m.mu.Unlock()
		return next.Packet, next.Dest, nil
	}
	m.mu.Unlock()

	<-ctx.Done()
	return nil, nil, ctx.Err()
}

// Close marks the mock as closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SendCalls returns a copy of every Send() call recorded so far.
func (m *Mock) SendCalls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]SendCall, len(m.sendCalls))
	copy(calls, m.sendCalls)
	return calls
}

var _ Conn = (*Mock)(nil)
