package ledger

import "multiverse.land/internal/protocol"

// PremintBatch creates one unowned tile per spec, assigning fresh
// monotonically increasing token ids. The whole batch is staged and
// validated before anything is written: a duplicate coordinate, within
// the batch or against prior premints, aborts the entire call.
func (l *Ledger) PremintBatch(actor Address, zoneID uint32, specs []TileSpec) (Receipt, error) {
	if !l.anyRole(actor, RoleMinter, RoleManager) {
		return Receipt{}, l.reject(protocol.OpPremintBatch, actor,
			errf(protocol.ErrUnauthorized, "%s lacks MINTER or MANAGER", actor))
	}
	if _, ok := l.zones[zoneID]; !ok {
		return Receipt{}, l.reject(protocol.OpPremintBatch, actor,
			errf(protocol.ErrZoneNotFound, "zone %d not found", zoneID))
	}
	if len(specs) == 0 {
		return Receipt{}, l.reject(protocol.OpPremintBatch, actor,
			errf(protocol.ErrBadRequest, "empty premint batch"))
	}

	seen := make(map[coordKey]struct{}, len(specs))
	for _, s := range specs {
		if s.X < 0 || s.Y < 0 || s.LandType < 0 {
			return Receipt{}, l.reject(protocol.OpPremintBatch, actor,
				errf(protocol.ErrBadRequest, "negative coordinate or land type (%d,%d,%d)", s.X, s.Y, s.LandType))
		}
		key := coordKey{ZoneID: zoneID, X: s.X, Y: s.Y}
		if _, dup := seen[key]; dup {
			return Receipt{}, l.reject(protocol.OpPremintBatch, actor,
				errf(protocol.ErrDuplicateTile, "tile (%d,%d) repeated in batch for zone %d", s.X, s.Y, zoneID))
		}
		if _, dup := l.coords[key]; dup {
			return Receipt{}, l.reject(protocol.OpPremintBatch, actor,
				errf(protocol.ErrDuplicateTile, "tile (%d,%d) already preminted in zone %d", s.X, s.Y, zoneID))
		}
		seen[key] = struct{}{}
	}

	// Validated; commit the whole batch.
	ids := make([]uint64, 0, len(specs))
	for _, s := range specs {
		id := l.nextTokenID
		l.nextTokenID++
		l.tiles[id] = &Tile{
			TokenID:  id,
			ZoneID:   zoneID,
			X:        s.X,
			Y:        s.Y,
			LandType: s.LandType,
			Owner:    ZeroAddress,
		}
		l.coords[coordKey{ZoneID: zoneID, X: s.X, Y: s.Y}] = id
		l.zoneTiles[zoneID] = append(l.zoneTiles[zoneID], id)
		ids = append(ids, id)
	}

	r := l.commit(protocol.OpPremintBatch, actor, map[string]any{
		"zone_id": zoneID, "count": len(ids), "token_ids": ids,
	})
	r.TokenIDs = ids
	return r, nil
}

// TilesByZone returns the zone's tiles in token id order.
func (l *Ledger) TilesByZone(zoneID uint32) ([]Tile, error) {
	if _, ok := l.zones[zoneID]; !ok {
		return nil, errf(protocol.ErrZoneNotFound, "zone %d not found", zoneID)
	}
	ids := l.zoneTiles[zoneID]
	out := make([]Tile, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.tiles[id])
	}
	return out, nil
}

func (l *Ledger) OwnerOf(tokenID uint64) (Address, error) {
	t, ok := l.tiles[tokenID]
	if !ok {
		return "", errf(protocol.ErrUnknownTile, "token %d never minted", tokenID)
	}
	return t.Owner, nil
}

// TransferOwnership moves a tile to newOwner. Allowed for the current
// owner, an operator the owner approved, or a CONTRACT-role holder (the
// marketplace moving tiles out of the unowned pool).
func (l *Ledger) TransferOwnership(actor Address, tokenID uint64, newOwner Address) (Receipt, error) {
	t, ok := l.tiles[tokenID]
	if !ok {
		return Receipt{}, l.reject(protocol.OpTransferOwnership, actor,
			errf(protocol.ErrUnknownTile, "token %d never minted", tokenID))
	}
	if !newOwner.Valid() {
		return Receipt{}, l.reject(protocol.OpTransferOwnership, actor,
			errf(protocol.ErrBadRequest, "bad new owner %q", newOwner))
	}
	if actor != t.Owner && !l.operators[t.Owner][actor] && !l.HasRole(RoleContract, actor) {
		return Receipt{}, l.reject(protocol.OpTransferOwnership, actor,
			errf(protocol.ErrUnauthorized, "%s may not move token %d", actor, tokenID))
	}
	prev := t.Owner
	t.Owner = newOwner
	r := l.commit(protocol.OpTransferOwnership, actor, map[string]any{
		"token_id": tokenID, "from": prev, "to": newOwner,
	})
	r.TokenIDs = []uint64{tokenID}
	return r, nil
}

// SetOperatorApproval lets the actor delegate (or revoke) transfer
// rights over all of its tiles to an operator.
func (l *Ledger) SetOperatorApproval(actor, operator Address, approved bool) (Receipt, error) {
	if !operator.Valid() {
		return Receipt{}, l.reject(protocol.OpSetOperatorApproval, actor,
			errf(protocol.ErrBadRequest, "bad operator %q", operator))
	}
	if approved {
		set := l.operators[actor]
		if set == nil {
			set = map[Address]bool{}
			l.operators[actor] = set
		}
		set[operator] = true
	} else {
		delete(l.operators[actor], operator)
	}
	return l.commit(protocol.OpSetOperatorApproval, actor, map[string]any{
		"operator": operator, "approved": approved,
	}), nil
}

// IsOperator reports whether operator holds bulk delegation from owner.
func (l *Ledger) IsOperator(owner, operator Address) bool {
	return l.operators[owner][operator]
}
