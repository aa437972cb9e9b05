package respond

import (
	"context"
	"log/slog"

	"github.com/driftwood-systems/beacon/internal/dnscodec"
	"github.com/driftwood-systems/beacon/internal/protocol"
	"github.com/driftwood-systems/beacon/internal/registry"
)

// announce sends one unsolicited multicast response announcing entry's
// full record set on every configured socket, mirroring what a querier
// would receive from a positive PTR query. This is a single best-effort
// announcement, not RFC 6762 §8.3's probing-era repeated announcement —
// probing and conflict detection are out of scope (spec Non-goal).
func (m *Machine) announce(ctx context.Context, entry *registry.Entry) {
	records, err := serviceRecords(&m.cfg, entry)
	if err != nil {
		slog.Warn("skipping announcement, failed to build records", "service", entry.InstanceName, "error", err)
		return
	}

	packet, err := dnscodec.Build(0, protocol.FlagQR|protocol.FlagAA, records, nil, nil)
	if err != nil {
		slog.Warn("skipping announcement, failed to encode packet", "service", entry.InstanceName, "error", err)
		return
	}

	for _, fs := range m.cfg.Sockets {
		if err := fs.Conn.Send(ctx, packet, fs.Family.GroupAddr()); err != nil {
			slog.Debug("announcement send failed", "family", fs.Family, "error", err)
		}
	}
}
