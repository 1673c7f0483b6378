package ledger

import (
	"sort"

	"multiverse.land/internal/persistence/snapshot"
)

// ExportSnapshot captures the full registry state. Output is
// deterministic: every slice is sorted so identical states export
// byte-identical snapshots.
func (l *Ledger) ExportSnapshot() snapshot.StateV1 {
	s := snapshot.StateV1{
		Header: snapshot.Header{
			Version:  1,
			LedgerID: l.cfg.ID,
			Seq:      l.seq.Load(),
		},
		Deployer:     string(l.cfg.Deployer),
		Marketplace:  string(l.cfg.Marketplace),
		PricePerTile: l.pricePerTile,
		Counters:     snapshot.CountersV1{NextTokenID: l.nextTokenID},
	}

	for _, w := range l.wallets {
		s.Wallets = append(s.Wallets, string(w))
	}

	for role, set := range l.roles {
		for addr := range set {
			s.Roles = append(s.Roles, snapshot.RoleGrantV1{Role: string(role), Addr: string(addr)})
		}
	}
	sort.Slice(s.Roles, func(i, j int) bool {
		if s.Roles[i].Role != s.Roles[j].Role {
			return s.Roles[i].Role < s.Roles[j].Role
		}
		return s.Roles[i].Addr < s.Roles[j].Addr
	})

	for _, id := range l.zoneOrder {
		z := l.zones[id]
		s.Zones = append(s.Zones, snapshot.ZoneV1{ZoneID: z.ZoneID, Metadata: z.Metadata})
	}

	ids := make([]uint64, 0, len(l.tiles))
	for id := range l.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		t := l.tiles[id]
		s.Tiles = append(s.Tiles, snapshot.TileV1{
			TokenID:  t.TokenID,
			ZoneID:   t.ZoneID,
			X:        t.X,
			Y:        t.Y,
			LandType: t.LandType,
			Owner:    string(t.Owner),
		})
	}

	for owner, set := range l.operators {
		for op, ok := range set {
			if !ok {
				continue
			}
			s.Operators = append(s.Operators, snapshot.OperatorV1{Owner: string(owner), Operator: string(op)})
		}
	}
	sort.Slice(s.Operators, func(i, j int) bool {
		if s.Operators[i].Owner != s.Operators[j].Owner {
			return s.Operators[i].Owner < s.Operators[j].Owner
		}
		return s.Operators[i].Operator < s.Operators[j].Operator
	})

	if ts, ok := l.gateway.(TokenSnapshotter); ok {
		t := ts.ExportToken()
		s.Token = &t
	}
	return s
}
