package dnscodec

import (
	"encoding/binary"
)

// Build serializes a response message per RFC 1035 §4.1 / RFC 6762 §18: a
// 12-byte header carrying id/flags and the given section counts, followed
// by the answer, authority, and additional records in order.
func Build(id uint16, flags uint16, answers, authorities, additionals []Record) ([]byte, error) {
	out := make([]byte, 12, 512)
	binary.BigEndian.PutUint16(out[0:2], id)
	binary.BigEndian.PutUint16(out[2:4], flags)
	binary.BigEndian.PutUint16(out[4:6], 0) // QDCOUNT: responses carry no questions
	binary.BigEndian.PutUint16(out[6:8], clampUint16(len(answers)))
	binary.BigEndian.PutUint16(out[8:10], clampUint16(len(authorities)))
	binary.BigEndian.PutUint16(out[10:12], clampUint16(len(additionals)))

	for _, sec := range [][]Record{answers, authorities, additionals} {
		for _, r := range sec {
			b, err := serializeRecord(r)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

func clampUint16(n int) uint16 {
	if n > 65535 {
		return 65535
	}
	return uint16(n)
}

func serializeRecord(r Record) ([]byte, error) {
	encodedName, err := encodeRecordName(r.Name)
	if err != nil {
		return nil, err
	}

	rdataLen := clampUint16(len(r.Data))

	out := make([]byte, 0, len(encodedName)+10+len(r.Data))
	out = append(out, encodedName...)

	typeBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(typeBytes, r.Type)
	out = append(out, typeBytes...)

	class := r.Class
	if r.CacheFlush {
		class |= 0x8000
	}
	classBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(classBytes, class)
	out = append(out, classBytes...)

	ttlBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(ttlBytes, r.TTL)
	out = append(out, ttlBytes...)

	rdlenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(rdlenBytes, rdataLen)
	out = append(out, rdlenBytes...)

	out = append(out, r.Data...)
	return out, nil
}
