package dnscodec

import (
	"encoding/binary"
	"fmt"

	"github.com/driftwood-systems/beacon/internal/errors"
	"github.com/driftwood-systems/beacon/internal/protocol"
)

// Parse decodes a complete DNS message per RFC 1035 §4.1: a 12-byte header
// followed by question, answer, authority, and additional sections.
func Parse(msg []byte) (*Message, error) {
	if len(msg) < 12 {
		return nil, &errors.WireFormatError{Operation: "parse header", Offset: 0, Message: fmt.Sprintf("message too short for header: %d bytes, expected at least 12", len(msg))}
	}

	id := binary.BigEndian.Uint16(msg[0:2])
	flags := binary.BigEndian.Uint16(msg[2:4])
	qdCount := binary.BigEndian.Uint16(msg[4:6])
	anCount := binary.BigEndian.Uint16(msg[6:8])
	nsCount := binary.BigEndian.Uint16(msg[8:10])
	arCount := binary.BigEndian.Uint16(msg[10:12])

	offset := 12

	questions := make([]Question, qdCount)
	for i := range questions {
		q, newOffset, err := parseQuestion(msg, offset)
		if err != nil {
			return nil, err
		}
		questions[i] = q
		offset = newOffset
	}

	answers, offset, err := parseRecords(msg, offset, anCount)
	if err != nil {
		return nil, err
	}
	authorities, offset, err := parseRecords(msg, offset, nsCount)
	if err != nil {
		return nil, err
	}
	additionals, _, err := parseRecords(msg, offset, arCount)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:          id,
		Flags:       flags,
		Questions:   questions,
		Answers:     answers,
		Authorities: authorities,
		Additionals: additionals,
	}, nil
}

func parseQuestion(msg []byte, offset int) (Question, int, error) {
	qname, newOffset, err := parseName(msg, offset)
	if err != nil {
		return Question{}, offset, err
	}
	if newOffset+4 > len(msg) {
		return Question{}, offset, &errors.WireFormatError{Operation: "parse question", Offset: newOffset, Message: "truncated question: not enough bytes for QTYPE and QCLASS"}
	}
	qtype := binary.BigEndian.Uint16(msg[newOffset : newOffset+2])
	qclassRaw := binary.BigEndian.Uint16(msg[newOffset+2 : newOffset+4])

	q := Question{
		Name:    qname,
		Type:    qtype,
		Class:   qclassRaw & uint16(protocol.ClassMask),
		Unicast: qclassRaw&uint16(protocol.ClassUnicastResponse) != 0,
	}
	return q, newOffset + 4, nil
}

func parseRecords(msg []byte, offset int, count uint16) ([]Record, int, error) {
	records := make([]Record, count)
	for i := range records {
		r, newOffset, err := parseRecord(msg, offset)
		if err != nil {
			return nil, offset, err
		}
		records[i] = r
		offset = newOffset
	}
	return records, offset, nil
}

func parseRecord(msg []byte, offset int) (Record, int, error) {
	name, newOffset, err := parseName(msg, offset)
	if err != nil {
		return Record{}, offset, err
	}
	if newOffset+10 > len(msg) {
		return Record{}, offset, &errors.WireFormatError{Operation: "parse record", Offset: newOffset, Message: "truncated record: not enough bytes for fixed fields"}
	}

	rtype := binary.BigEndian.Uint16(msg[newOffset : newOffset+2])
	classRaw := binary.BigEndian.Uint16(msg[newOffset+2 : newOffset+4])
	ttl := binary.BigEndian.Uint32(msg[newOffset+4 : newOffset+8])
	rdlength := binary.BigEndian.Uint16(msg[newOffset+8 : newOffset+10])
	newOffset += 10

	if newOffset+int(rdlength) > len(msg) {
		return Record{}, offset, &errors.WireFormatError{Operation: "parse record", Offset: newOffset, Message: fmt.Sprintf("truncated RDATA: expected %d bytes, only %d available", rdlength, len(msg)-newOffset)}
	}
	rdata := make([]byte, rdlength)
	copy(rdata, msg[newOffset:newOffset+int(rdlength)])

	r := Record{
		Name:       name,
		Type:       rtype,
		Class:      classRaw & uint16(protocol.ClassMask),
		CacheFlush: classRaw&uint16(protocol.ClassCacheFlush) != 0,
		TTL:        ttl,
		Data:       rdata,
	}
	return r, newOffset + int(rdlength), nil
}
