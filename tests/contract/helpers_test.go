// Package contract exercises the responder end-to-end against RFC
// 6762/6763 scenarios, driving a Machine through a Mock transport the
// same way a real multicast socket would.
package contract

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/driftwood-systems/beacon/internal/dnscodec"
	"github.com/driftwood-systems/beacon/internal/protocol"
	"github.com/driftwood-systems/beacon/internal/respond"
	"github.com/driftwood-systems/beacon/internal/transport"
)

// buildQuery encodes a single-question query packet per RFC 1035 §4.1.
func buildQuery(t *testing.T, id uint16, name string, qtype protocol.RecordType, knownAnswers []dnscodec.Record) []byte {
	t.Helper()

	encodedName, err := dnscodec.EncodeName(name)
	if err != nil {
		t.Fatalf("EncodeName(%q): %v", name, err)
	}

	out := make([]byte, 12)
	binary.BigEndian.PutUint16(out[0:2], id)
	binary.BigEndian.PutUint16(out[2:4], 0) // flags: query
	binary.BigEndian.PutUint16(out[4:6], 1) // QDCOUNT
	binary.BigEndian.PutUint16(out[6:8], clampUint16(len(knownAnswers)))

	out = append(out, encodedName...)
	qtypeBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(qtypeBytes, uint16(qtype))
	out = append(out, qtypeBytes...)
	qclassBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(qclassBytes, uint16(protocol.ClassIN))
	out = append(out, qclassBytes...)

	for _, rec := range knownAnswers {
		rb, err := appendRecord(out, rec)
		if err != nil {
			t.Fatalf("encode known answer: %v", err)
		}
		out = rb
	}
	return out
}

func clampUint16(n int) uint16 {
	if n > 65535 {
		return 65535
	}
	return uint16(n)
}

// appendRecord encodes rec in the answer-record wire format and appends
// it to out. Record names here are always uncompressed top-level names
// used by the tests, so a plain EncodeName is sufficient.
func appendRecord(out []byte, rec dnscodec.Record) ([]byte, error) {
	nameBytes, err := dnscodec.EncodeName(rec.Name)
	if err != nil {
		return nil, err
	}
	out = append(out, nameBytes...)

	buf := make([]byte, 10)
	binary.BigEndian.PutUint16(buf[0:2], rec.Type)
	binary.BigEndian.PutUint16(buf[2:4], rec.Class)
	binary.BigEndian.PutUint32(buf[4:8], rec.TTL)
	binary.BigEndian.PutUint16(buf[8:10], clampUint16(len(rec.Data)))
	out = append(out, buf...)
	out = append(out, rec.Data...)
	return out, nil
}

// newRunningMachine starts a Machine backed by mock over a single IPv4
// socket and returns it alongside a shutdown func the test should defer.
func newRunningMachine(t *testing.T, addrs ...net.IP) (*respond.Machine, *transport.Mock, func()) {
	t.Helper()
	mock := transport.NewMock()
	if len(addrs) == 0 {
		addrs = []net.IP{net.ParseIP("192.168.1.5")}
	}
	machine := respond.New(respond.Config{
		Hostname: "host.local",
		Sockets: []respond.FamilySocket{
			{Family: protocol.FamilyV4, Conn: mock, Addrs: addrs},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		machine.Run(ctx)
	}()

	return machine, mock, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("machine did not shut down in time")
		}
	}
}

// waitForSend polls mock for the first recorded query response, since the
// Machine answers queries on its own goroutine. Registration
// announcements carry transaction id 0 and are skipped; responses echo
// the query's id, which every test query sets non-zero.
func waitForSend(t *testing.T, mock *transport.Mock) transport.SendCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, call := range mock.SendCalls() {
			if len(call.Packet) >= 2 && binary.BigEndian.Uint16(call.Packet[0:2]) != 0 {
				return call
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no response sent within deadline")
	return transport.SendCall{}
}

func register(t *testing.T, machine *respond.Machine, instanceName, serviceType string, port uint16, txt []string) uint64 {
	t.Helper()
	reply := make(chan respond.Reply, 1)
	err := machine.Submit(context.Background(), respond.Command{
		Kind: respond.CmdRegister,
		Register: respond.RegisterRequest{
			InstanceName: instanceName,
			ServiceType:  serviceType,
			Port:         port,
			TXT:          txt,
		},
		Reply: reply,
	})
	if err != nil {
		t.Fatalf("Submit(Register): %v", err)
	}
	r := <-reply
	if r.Err != nil {
		t.Fatalf("Register(%q): %v", instanceName, r.Err)
	}
	return r.ID
}
