package respond

import (
	"net"
	"strings"

	"github.com/driftwood-systems/beacon/internal/dnscodec"
	"github.com/driftwood-systems/beacon/internal/protocol"
	"github.com/driftwood-systems/beacon/internal/registry"
)

// servicesMetaQueryName is the RFC 6763 §9 well-known name for service-type
// enumeration: a PTR query against it returns one PTR per distinct
// registered service type, letting a browser discover what's on the
// network without already knowing a service type to ask for.
const servicesMetaQueryName = "_services._dns-sd._udp.local"

type additionalKey struct {
	name string
	rt   uint16
}

// buildAnswers matches every question in msg against the registry and
// returns the answer and additional records for the response. Both
// slices are nil if nothing matched, which the caller treats as "drop
// this query silently".
func buildAnswers(cfg *Config, reg *registry.Registry, msg *dnscodec.Message) (answers, additionals []dnscodec.Record) {
	seen := make(map[additionalKey]bool)
	addAdditional := func(r dnscodec.Record) {
		key := additionalKey{name: strings.ToLower(r.Name), rt: r.Type}
		if seen[key] {
			return
		}
		seen[key] = true
		additionals = append(additionals, r)
	}

	for _, q := range msg.Questions {
		qtype := protocol.RecordType(q.Type)

		if strings.EqualFold(q.Name, servicesMetaQueryName) && matchesType(qtype, protocol.RecordTypePTR) {
			answers = append(answers, metaQueryAnswers(reg)...)
			continue
		}

		if serviceType, ok := matchServiceType(reg, q.Name); ok && matchesType(qtype, protocol.RecordTypePTR) {
			for _, entry := range reg.ListByType(serviceType) {
				recs, err := serviceRecords(cfg, entry)
				if err != nil {
					continue
				}
				answers = append(answers, recordsByType(recs, protocol.RecordTypePTR)...)
				for _, r := range recordsByType(recs, protocol.RecordTypeSRV) {
					addAdditional(r)
				}
				for _, r := range recordsByType(recs, protocol.RecordTypeTXT) {
					addAdditional(r)
				}
				for _, r := range recordsByType(recs, protocol.RecordTypeA) {
					addAdditional(r)
				}
				for _, r := range recordsByType(recs, protocol.RecordTypeAAAA) {
					addAdditional(r)
				}
			}
			continue
		}

		if entry, ok := reg.GetByFullName(q.Name); ok {
			recs, err := serviceRecords(cfg, entry)
			if err != nil {
				continue
			}

			if matchesType(qtype, protocol.RecordTypeSRV) {
				answers = append(answers, recordsByType(recs, protocol.RecordTypeSRV)...)
				for _, r := range recordsByType(recs, protocol.RecordTypeTXT) {
					addAdditional(r)
				}
				for _, r := range recordsByType(recs, protocol.RecordTypeA) {
					addAdditional(r)
				}
				for _, r := range recordsByType(recs, protocol.RecordTypeAAAA) {
					addAdditional(r)
				}
			}
			if matchesType(qtype, protocol.RecordTypeTXT) {
				answers = append(answers, recordsByType(recs, protocol.RecordTypeTXT)...)
			}
			continue
		}

		if strings.EqualFold(q.Name, cfg.Hostname) {
			if matchesType(qtype, protocol.RecordTypeA) {
				answers = append(answers, hostnameAddressRecords(cfg, protocol.FamilyV4)...)
			}
			if matchesType(qtype, protocol.RecordTypeAAAA) {
				answers = append(answers, hostnameAddressRecords(cfg, protocol.FamilyV6)...)
			}
		}
	}

	return answers, additionals
}

// matchesType reports whether a question of type qtype should be
// answered with a record of type want: either an exact match or an ANY
// query, which matches every type this responder emits.
func matchesType(qtype, want protocol.RecordType) bool {
	return qtype == want || qtype == protocol.RecordTypeANY
}

// matchServiceType finds the registry's canonical (as-registered) form
// of a service type named case-insensitively by name, since DNS names
// compare case-insensitively but the registry's by-type index is keyed
// on the exact string a service was registered with.
func matchServiceType(reg *registry.Registry, name string) (string, bool) {
	for _, t := range reg.ListTypes() {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	return "", false
}

// metaQueryAnswers builds the PTR record set for a service-type
// enumeration query: one PTR per distinct registered service type,
// pointing from servicesMetaQueryName to the type's own domain name.
func metaQueryAnswers(reg *registry.Registry) []dnscodec.Record {
	types := reg.ListTypes()
	out := make([]dnscodec.Record, 0, len(types))
	for _, t := range types {
		data, err := dnscodec.EncodeName(t)
		if err != nil {
			continue
		}
		out = append(out, dnscodec.Record{
			Name:       servicesMetaQueryName,
			Type:       uint16(protocol.RecordTypePTR),
			Class:      uint16(protocol.ClassIN),
			TTL:        protocol.TTLForType(protocol.RecordTypePTR),
			Data:       data,
			CacheFlush: false,
		})
	}
	return out
}

// serviceRecords builds entry's full RFC 6763 §6 record set, filling in
// the responder's hostname and currently bound addresses.
func serviceRecords(cfg *Config, entry *registry.Entry) ([]dnscodec.Record, error) {
	return dnscodec.BuildServiceRecords(dnscodec.ServiceRecords{
		InstanceName: entry.InstanceName,
		ServiceType:  entry.ServiceType,
		Hostname:     cfg.Hostname,
		Port:         entry.Port,
		IPv4:         addrOf(cfg, protocol.FamilyV4),
		IPv6:         addrOf(cfg, protocol.FamilyV6),
		TXT:          entry.TXT,
	})
}

// hostnameAddressRecords builds one A or AAAA record (per family) for
// every address bound to a socket of that family, answering a direct
// hostname query with every address the responder actually has rather
// than just the first.
func hostnameAddressRecords(cfg *Config, family protocol.Family) []dnscodec.Record {
	rt := protocol.RecordTypeA
	if family == protocol.FamilyV6 {
		rt = protocol.RecordTypeAAAA
	}

	var out []dnscodec.Record
	for _, fs := range cfg.Sockets {
		if fs.Family != family {
			continue
		}
		for _, addr := range fs.Addrs {
			ip := addr.To4()
			if family == protocol.FamilyV6 {
				ip = addr.To16()
				if addr.To4() != nil {
					continue // skip v4-mapped addresses on the v6 socket
				}
			}
			if ip == nil {
				continue
			}
			out = append(out, dnscodec.Record{
				Name:       cfg.Hostname,
				Type:       uint16(rt),
				Class:      uint16(protocol.ClassIN),
				TTL:        protocol.TTLForType(rt),
				Data:       []byte(ip),
				CacheFlush: true,
			})
		}
	}
	return out
}

// recordsByType filters records to those of type rt.
func recordsByType(records []dnscodec.Record, rt protocol.RecordType) []dnscodec.Record {
	var out []dnscodec.Record
	for _, r := range records {
		if r.Type == uint16(rt) {
			out = append(out, r)
		}
	}
	return out
}

// addrOf returns the first address of family bound to any of cfg's
// sockets, or nil if the responder has none.
func addrOf(cfg *Config, family protocol.Family) net.IP {
	for _, fs := range cfg.Sockets {
		if fs.Family == family && len(fs.Addrs) > 0 {
			return fs.Addrs[0]
		}
	}
	return nil
}
