// Package dnscodec implements the DNS wire-format contract the responder
// relies on: parsing an inbound datagram into a structured message and
// building an outbound response from explicit answer/authority/additional
// lists, per RFC 1035 §4 and the mDNS extensions of RFC 6762.
package dnscodec

import "github.com/driftwood-systems/beacon/internal/protocol"

// Question is one entry of a message's question section.
type Question struct {
	Name string

	// Type is the QTYPE (A, PTR, TXT, SRV, AAAA, ANY, ...).
	Type uint16

	// Class is the QCLASS with the top bit (QU, RFC 6762 §5.4) masked off;
	// Unicast reports that bit separately.
	Class uint16

	// Unicast reports whether the querier set the top bit of QCLASS,
	// requesting a unicast reply per RFC 6762 §5.4.
	Unicast bool
}

// Record is one entry of a message's answer, authority, or additional
// section — either as parsed off the wire (inbound) or as supplied to
// Build (outbound).
type Record struct {
	Name string
	Type uint16

	// Class is the record class with the top bit (cache-flush, RFC 6762
	// §10.2) masked off; CacheFlush reports that bit separately.
	Class uint16

	// CacheFlush reports whether the cache-flush bit is set. Build sets
	// it on the wire; Parse reports what it read.
	CacheFlush bool

	TTL  uint32
	Data []byte
}

// Message is a fully parsed (or about-to-be-built) DNS message.
type Message struct {
	ID    uint16
	Flags uint16

	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// IsQuery reports whether the QR bit is clear.
func (m *Message) IsQuery() bool { return m.Flags&protocol.FlagQR == 0 }

// IsResponse reports whether the QR bit is set.
func (m *Message) IsResponse() bool { return m.Flags&protocol.FlagQR != 0 }

// RCODE extracts the response code (bits 0-3) from Flags.
func (m *Message) RCODE() uint8 { return uint8(m.Flags & 0x000F) }
