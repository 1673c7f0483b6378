package ledger

import "multiverse.land/internal/protocol"

func (l *Ledger) CreateZone(actor Address, zoneID uint32, metadata string) (Receipt, error) {
	if !l.anyRole(actor, RoleDev, RoleManager) {
		return Receipt{}, l.reject(protocol.OpCreateZone, actor,
			errf(protocol.ErrUnauthorized, "%s lacks DEV or MANAGER", actor))
	}
	if _, exists := l.zones[zoneID]; exists {
		return Receipt{}, l.reject(protocol.OpCreateZone, actor,
			errf(protocol.ErrDuplicateZone, "zone %d already exists", zoneID))
	}
	l.zones[zoneID] = &Zone{ZoneID: zoneID, Metadata: metadata}
	l.zoneOrder = append(l.zoneOrder, zoneID)
	return l.commit(protocol.OpCreateZone, actor, map[string]any{
		"zone_id": zoneID, "metadata": metadata,
	}), nil
}

// ZoneList returns zone ids in creation order.
func (l *Ledger) ZoneList() []uint32 {
	return append([]uint32(nil), l.zoneOrder...)
}

func (l *Ledger) GetZone(zoneID uint32) (Zone, error) {
	z, ok := l.zones[zoneID]
	if !ok {
		return Zone{}, errf(protocol.ErrZoneNotFound, "zone %d not found", zoneID)
	}
	return *z, nil
}
