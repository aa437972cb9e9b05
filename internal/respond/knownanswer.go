package respond

import (
	"strings"

	"github.com/driftwood-systems/beacon/internal/dnscodec"
)

// filterKnownAnswers drops any record already present in knownAnswers at
// at least half its true TTL, per RFC 6762 §7.1: a querier that recently
// saw the answer with a fresh-enough TTL doesn't need to be told again.
func filterKnownAnswers(records, knownAnswers []dnscodec.Record) []dnscodec.Record {
	if len(knownAnswers) == 0 {
		return records
	}

	out := make([]dnscodec.Record, 0, len(records))
	for _, r := range records {
		if !suppressed(r, knownAnswers) {
			out = append(out, r)
		}
	}
	return out
}

// suppressed reports whether rec should be omitted because a matching
// known-answer already covers it with a fresh-enough TTL.
func suppressed(rec dnscodec.Record, knownAnswers []dnscodec.Record) bool {
	for _, known := range knownAnswers {
		if !recordsMatch(rec, known) {
			continue
		}
		return known.TTL >= rec.TTL/2
	}
	return false
}

// recordsMatch reports whether two records identify the same RR per RFC
// 6762 §7.1: same name (compared case-insensitively, per RFC 1035 §3.1),
// type, class, and RDATA. The cache-flush bit is not part of a record's
// identity and is ignored.
func recordsMatch(a, b dnscodec.Record) bool {
	if !strings.EqualFold(a.Name, b.Name) {
		return false
	}
	if a.Type != b.Type || a.Class != b.Class {
		return false
	}
	if len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}
