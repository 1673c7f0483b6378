package ledger

import "sort"

// TileLookup is a per-id query result; Found is false for ids that were
// never minted (the lookup itself does not fail).
type TileLookup struct {
	TokenID uint64
	Found   bool
	Tile    Tile
}

// TilesByOwner returns all tiles held by addr, in token id order.
func (l *Ledger) TilesByOwner(addr Address) []Tile {
	var out []Tile
	for _, t := range l.tiles {
		if t.Owner == addr {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// TilesByID resolves each id independently, preserving request order.
func (l *Ledger) TilesByID(tokenIDs []uint64) []TileLookup {
	out := make([]TileLookup, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		if t, ok := l.tiles[id]; ok {
			out = append(out, TileLookup{TokenID: id, Found: true, Tile: *t})
		} else {
			out = append(out, TileLookup{TokenID: id})
		}
	}
	return out
}
