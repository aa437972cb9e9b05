package dnscodec

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/driftwood-systems/beacon/internal/errors"
	"github.com/driftwood-systems/beacon/internal/protocol"
)

// ServiceRecords describes one registered service in enough detail to
// build its full RFC 6763 §6 record set: PTR, SRV, TXT, and an address
// record (A and/or AAAA) for the host.
type ServiceRecords struct {
	InstanceName string // "My Printer"
	ServiceType  string // "_http._tcp.local"
	Hostname     string // "myhost.local"
	Port         uint16
	IPv4         net.IP // nil if the host has no v4 address to advertise
	IPv6         net.IP // nil if the host has no v6 address to advertise
	TXT          []string
}

// BuildServiceRecords constructs the record set for one service per RFC
// 6763 §6:
//
//   - PTR:  _service._proto.local -> instance._service._proto.local (shared)
//   - SRV:  instance._service._proto.local -> priority/weight/port/hostname (unique)
//   - TXT:  instance._service._proto.local -> metadata (unique)
//   - A/AAAA: hostname.local -> address (unique)
//
// TTLs follow protocol.TTLForType: 4500 s for PTR, 120 s for everything
// else this responder emits.
func BuildServiceRecords(s ServiceRecords) ([]Record, error) {
	instanceFQDN := s.InstanceName + "." + s.ServiceType

	txtData, err := BuildTXTData(s.TXT)
	if err != nil {
		return nil, err
	}

	srvData, err := buildSRVData(s.Port, s.Hostname)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, 5)

	out = append(out, Record{
		Name:       s.ServiceType,
		Type:       uint16(protocol.RecordTypePTR),
		Class:      uint16(protocol.ClassIN),
		TTL:        protocol.TTLForType(protocol.RecordTypePTR),
		Data:       mustEncodeInstanceRDATA(s.InstanceName, s.ServiceType),
		CacheFlush: false,
	})

	out = append(out, Record{
		Name:       instanceFQDN,
		Type:       uint16(protocol.RecordTypeSRV),
		Class:      uint16(protocol.ClassIN),
		TTL:        protocol.TTLForType(protocol.RecordTypeSRV),
		Data:       srvData,
		CacheFlush: true,
	})

	out = append(out, Record{
		Name:       instanceFQDN,
		Type:       uint16(protocol.RecordTypeTXT),
		Class:      uint16(protocol.ClassIN),
		TTL:        protocol.TTLForType(protocol.RecordTypeTXT),
		Data:       txtData,
		CacheFlush: true,
	})

	if s.IPv4 != nil {
		v4 := s.IPv4.To4()
		if v4 == nil {
			return nil, &errors.ValidationError{Field: "IPv4", Value: s.IPv4.String(), Message: "not a valid IPv4 address"}
		}
		out = append(out, Record{
			Name:       s.Hostname,
			Type:       uint16(protocol.RecordTypeA),
			Class:      uint16(protocol.ClassIN),
			TTL:        protocol.TTLForType(protocol.RecordTypeA),
			Data:       []byte(v4),
			CacheFlush: true,
		})
	}

	if s.IPv6 != nil {
		v6 := s.IPv6.To16()
		if v6 == nil {
			return nil, &errors.ValidationError{Field: "IPv6", Value: s.IPv6.String(), Message: "not a valid IPv6 address"}
		}
		out = append(out, Record{
			Name:       s.Hostname,
			Type:       uint16(protocol.RecordTypeAAAA),
			Class:      uint16(protocol.ClassIN),
			TTL:        protocol.TTLForType(protocol.RecordTypeAAAA),
			Data:       []byte(v6),
			CacheFlush: true,
		})
	}

	return out, nil
}

func mustEncodeInstanceRDATA(instanceName, serviceType string) []byte {
	// Registration-time validation (see the root package's Handle.Register)
	// already guarantees this encodes cleanly.
	data, _ := encodeInstanceName(instanceName, serviceType)
	return data
}

func buildSRVData(port uint16, hostname string) ([]byte, error) {
	data := make([]byte, 6)
	binary.BigEndian.PutUint16(data[0:2], 0) // priority
	binary.BigEndian.PutUint16(data[2:4], 0) // weight
	binary.BigEndian.PutUint16(data[4:6], port)

	hostnameEncoded, err := encodeName(hostname)
	if err != nil {
		return nil, err
	}
	return append(data, hostnameEncoded...), nil
}

// BuildTXTData encodes an ordered sequence of "key[=value]" strings as a
// TXT record's RDATA per RFC 6763 §6.4: each entry is a length-prefixed
// byte string, concatenated in order. An empty sequence encodes as the
// single mandatory zero byte (RFC 6763 §6.1).
func BuildTXTData(entries []string) ([]byte, error) {
	if len(entries) == 0 {
		return []byte{0x00}, nil
	}

	data := make([]byte, 0, 256)
	for _, entry := range entries {
		if len(entry) > protocol.MaxTXTEntryLength {
			return nil, &errors.ValidationError{
				Field:   "txt",
				Value:   entry,
				Message: fmt.Sprintf("entry exceeds maximum length %d bytes", protocol.MaxTXTEntryLength),
			}
		}
		data = append(data, byte(len(entry)))
		data = append(data, []byte(entry)...)
	}
	return data, nil
}
