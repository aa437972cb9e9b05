package dnscodec

import (
	"fmt"
	"strings"

	"github.com/driftwood-systems/beacon/internal/errors"
	"github.com/driftwood-systems/beacon/internal/protocol"
)

// parseName decompresses a DNS name starting at offset per RFC 1035 §4.1.4,
// following compression pointers up to protocol.MaxCompressionPointers deep
// to guard against pointer loops in a malformed packet.
func parseName(msg []byte, offset int) (name string, newOffset int, err error) {
	if offset < 0 || offset >= len(msg) {
		return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: offset, Message: "offset out of bounds"}
	}

	var labels []string
	jumps := 0
	pos := offset
	jumped := false

	for {
		if pos >= len(msg) {
			return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: pos, Message: "unexpected end of message while parsing name"}
		}

		length := msg[pos]

		if (length & protocol.CompressionMask) == protocol.CompressionMask {
			if pos+1 >= len(msg) {
				return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: pos, Message: "truncated compression pointer"}
			}
			pointerOffset := int(msg[pos]&0x3F)<<8 | int(msg[pos+1])
			if pointerOffset >= pos {
				return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: pos, Message: fmt.Sprintf("invalid compression pointer: points to offset %d (current position %d)", pointerOffset, pos)}
			}
			if !jumped {
				newOffset = pos + 2
				jumped = true
			}
			pos = pointerOffset
			jumps++
			if jumps > protocol.MaxCompressionPointers {
				return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: pos, Message: fmt.Sprintf("too many compression jumps (possible loop, exceeded %d)", protocol.MaxCompressionPointers)}
			}
			continue
		}

		if length == 0 {
			if !jumped {
				newOffset = pos + 1
			}
			break
		}

		if length > protocol.MaxLabelLength {
			return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: pos, Message: fmt.Sprintf("label length %d exceeds maximum %d bytes", length, protocol.MaxLabelLength)}
		}
		if pos+1+int(length) > len(msg) {
			return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: pos, Message: fmt.Sprintf("truncated label: expected %d bytes, only %d available", length, len(msg)-pos-1)}
		}

		labels = append(labels, string(msg[pos+1:pos+1+int(length)]))
		pos += 1 + int(length)
	}

	name = strings.Join(labels, ".")
	if len(name) > protocol.MaxNameLength {
		return "", offset, &errors.WireFormatError{Operation: "parse name", Offset: offset, Message: fmt.Sprintf("name length %d exceeds maximum %d bytes", len(name), protocol.MaxNameLength)}
	}
	return name, newOffset, nil
}

// encodeName encodes name into wire-format length-prefixed labels per RFC
// 1035 §3.1. Compression is never emitted (RFC 6762 §18.14 makes it a
// SHOULD, not a MUST, and the responder's messages are small).
func encodeName(name string) ([]byte, error) {
	if name == "" || name == "." {
		return []byte{0}, nil
	}

	labels := strings.Split(name, ".")
	if len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	encoded := make([]byte, 0, 256)
	for _, label := range labels {
		if label == "" {
			return nil, &errors.ValidationError{Field: "name", Value: name, Message: "empty label (consecutive dots)"}
		}
		if len(label) > protocol.MaxLabelLength {
			return nil, &errors.ValidationError{Field: "name", Value: name, Message: fmt.Sprintf("label %q exceeds maximum length %d bytes", label, protocol.MaxLabelLength)}
		}
		for i, ch := range label {
			valid := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_'
			if !valid {
				return nil, &errors.ValidationError{Field: "name", Value: name, Message: fmt.Sprintf("invalid character %q in label %q (position %d)", ch, label, i)}
			}
			if ch == '-' && (i == 0 || i == len(label)-1) {
				return nil, &errors.ValidationError{Field: "name", Value: name, Message: fmt.Sprintf("hyphen cannot be first or last character in label %q", label)}
			}
		}
		encoded = append(encoded, byte(len(label)))
		encoded = append(encoded, []byte(label)...)
	}
	encoded = append(encoded, 0)

	if len(encoded) > protocol.MaxNameLength {
		return nil, &errors.ValidationError{Field: "name", Value: name, Message: fmt.Sprintf("encoded name length %d exceeds maximum %d bytes", len(encoded), protocol.MaxNameLength)}
	}
	return encoded, nil
}

// EncodeName encodes name as a plain wire-format domain name, for RDATA
// that itself holds a domain name (e.g. the PTR data of a service-type
// enumeration response).
func EncodeName(name string) ([]byte, error) {
	return encodeName(name)
}

// encodeInstanceName encodes a DNS-SD instance name as a single label that
// may carry arbitrary UTF-8 and spaces per RFC 6763 §4.3, followed by the
// normally-encoded service type.
func encodeInstanceName(instanceName, serviceType string) ([]byte, error) {
	if len(instanceName) == 0 {
		return nil, &errors.ValidationError{Field: "instanceName", Value: instanceName, Message: "instance name cannot be empty"}
	}
	if len(instanceName) > protocol.MaxLabelLength {
		return nil, &errors.ValidationError{Field: "instanceName", Value: instanceName, Message: fmt.Sprintf("instance name exceeds maximum label length %d bytes", protocol.MaxLabelLength)}
	}

	encoded := make([]byte, 0, 256)
	encoded = append(encoded, byte(len(instanceName)))
	encoded = append(encoded, []byte(instanceName)...)

	serviceTypeEncoded, err := encodeName(serviceType)
	if err != nil {
		return nil, fmt.Errorf("encoding service type: %w", err)
	}
	if len(serviceTypeEncoded) > 0 && serviceTypeEncoded[len(serviceTypeEncoded)-1] == 0 {
		serviceTypeEncoded = serviceTypeEncoded[:len(serviceTypeEncoded)-1]
	}
	encoded = append(encoded, serviceTypeEncoded...)
	encoded = append(encoded, 0)
	return encoded, nil
}

// encodeRecordName picks the instance-name encoding for names of the form
// "Instance._service._proto.local" and plain encoding for everything else.
func encodeRecordName(name string) ([]byte, error) {
	if strings.Contains(name, "._") {
		parts := strings.SplitN(name, "._", 2)
		if len(parts) == 2 {
			return encodeInstanceName(parts[0], "_"+parts[1])
		}
	}
	return encodeName(name)
}
