package ledger

import (
	"fmt"

	"multiverse.land/internal/persistence/snapshot"
)

// ImportSnapshot replaces the in-memory registry state. It must be
// called only before Run starts or from the loop goroutine.
func (l *Ledger) ImportSnapshot(s snapshot.StateV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if s.Header.LedgerID != l.cfg.ID {
		return fmt.Errorf("snapshot ledger id mismatch: have %s, snapshot %s", l.cfg.ID, s.Header.LedgerID)
	}

	roles := map[Role]map[Address]struct{}{}
	for _, g := range s.Roles {
		r, ok := ParseRole(g.Role)
		if !ok {
			return fmt.Errorf("snapshot has unknown role %q", g.Role)
		}
		set := roles[r]
		if set == nil {
			set = map[Address]struct{}{}
			roles[r] = set
		}
		set[Address(g.Addr)] = struct{}{}
	}

	zones := make(map[uint32]*Zone, len(s.Zones))
	zoneOrder := make([]uint32, 0, len(s.Zones))
	for _, z := range s.Zones {
		if _, dup := zones[z.ZoneID]; dup {
			return fmt.Errorf("snapshot repeats zone %d", z.ZoneID)
		}
		zones[z.ZoneID] = &Zone{ZoneID: z.ZoneID, Metadata: z.Metadata}
		zoneOrder = append(zoneOrder, z.ZoneID)
	}

	tiles := make(map[uint64]*Tile, len(s.Tiles))
	zoneTiles := map[uint32][]uint64{}
	coords := make(map[coordKey]uint64, len(s.Tiles))
	for _, t := range s.Tiles {
		if _, ok := zones[t.ZoneID]; !ok {
			return fmt.Errorf("snapshot tile %d references missing zone %d", t.TokenID, t.ZoneID)
		}
		if _, dup := tiles[t.TokenID]; dup {
			return fmt.Errorf("snapshot repeats token %d", t.TokenID)
		}
		key := coordKey{ZoneID: t.ZoneID, X: t.X, Y: t.Y}
		if _, dup := coords[key]; dup {
			return fmt.Errorf("snapshot repeats coordinate (%d,%d) in zone %d", t.X, t.Y, t.ZoneID)
		}
		if t.TokenID >= s.Counters.NextTokenID {
			return fmt.Errorf("snapshot token %d beyond counter %d", t.TokenID, s.Counters.NextTokenID)
		}
		tiles[t.TokenID] = &Tile{
			TokenID:  t.TokenID,
			ZoneID:   t.ZoneID,
			X:        t.X,
			Y:        t.Y,
			LandType: t.LandType,
			Owner:    Address(t.Owner),
		}
		coords[key] = t.TokenID
		zoneTiles[t.ZoneID] = append(zoneTiles[t.ZoneID], t.TokenID)
	}

	operators := map[Address]map[Address]bool{}
	for _, o := range s.Operators {
		set := operators[Address(o.Owner)]
		if set == nil {
			set = map[Address]bool{}
			operators[Address(o.Owner)] = set
		}
		set[Address(o.Operator)] = true
	}

	if s.Token != nil {
		ts, ok := l.gateway.(TokenSnapshotter)
		if !ok {
			return fmt.Errorf("snapshot carries token state but gateway cannot import it")
		}
		if err := ts.ImportToken(*s.Token); err != nil {
			return fmt.Errorf("import token state: %w", err)
		}
	}

	l.roles = roles
	l.zones = zones
	l.zoneOrder = zoneOrder
	l.tiles = tiles
	l.zoneTiles = zoneTiles
	l.coords = coords
	l.nextTokenID = s.Counters.NextTokenID
	l.operators = operators
	l.pricePerTile = s.PricePerTile
	l.wallets = l.wallets[:0]
	for _, w := range s.Wallets {
		l.wallets = append(l.wallets, Address(w))
	}
	l.seq.Store(s.Header.Seq)
	return nil
}
