package ledger

import (
	"context"
	"errors"

	"multiverse.land/internal/protocol"
)

// CallEnvelope is one submitted operation. The loop goroutine executes
// envelopes strictly in arrival order; each runs to completion before
// the next begins, which is the whole concurrency story: overlapping
// purchases are resolved by this total order, never by locking.
type CallEnvelope struct {
	Actor Address
	Call  protocol.CallMsg
	Resp  chan protocol.ResultMsg
}

func (l *Ledger) Inbox() chan<- CallEnvelope { return l.inbox }

func (l *Ledger) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case env := <-l.inbox:
			res := l.handleCall(env.Actor, env.Call)
			if env.Resp != nil {
				env.Resp <- res
			}
		}
	}
}

func (l *Ledger) Stop() { close(l.stop) }

func receiptInfo(r Receipt) *protocol.ReceiptInfo {
	info := &protocol.ReceiptInfo{
		Tx:       string(r.Tx),
		Seq:      r.Seq,
		Op:       r.Op,
		Actor:    string(r.Actor),
		TokenIDs: r.TokenIDs,
		Total:    r.Total,
	}
	for _, p := range r.Payouts {
		info.Payouts = append(info.Payouts, protocol.PayoutInfo{Wallet: string(p.Wallet), Amount: p.Amount})
	}
	return info
}

func tileInfo(t Tile) protocol.TileInfo {
	return protocol.TileInfo{
		TokenID:  t.TokenID,
		ZoneID:   t.ZoneID,
		X:        t.X,
		Y:        t.Y,
		LandType: t.LandType,
		Owner:    string(t.Owner),
	}
}

func fail(ref string, err error) protocol.ResultMsg {
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	return protocol.ResultMsg{Type: protocol.TypeResult, Ref: ref, OK: false, Code: CodeOf(err), Msg: msg}
}

func ok(ref string) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, Ref: ref, OK: true}
}

func committed(ref string, r Receipt) protocol.ResultMsg {
	res := ok(ref)
	res.Receipt = receiptInfo(r)
	return res
}

func (l *Ledger) handleCall(actor Address, call protocol.CallMsg) protocol.ResultMsg {
	ref := call.ID
	switch call.Op {
	case protocol.OpGrantRole:
		role, okRole := ParseRole(call.Role)
		if !okRole {
			return fail(ref, errf(protocol.ErrBadRequest, "unknown role %q", call.Role))
		}
		r, err := l.GrantRole(actor, role, Address(call.Addr))
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpRevokeRole:
		role, okRole := ParseRole(call.Role)
		if !okRole {
			return fail(ref, errf(protocol.ErrBadRequest, "unknown role %q", call.Role))
		}
		r, err := l.RevokeRole(actor, role, Address(call.Addr))
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpHasRole:
		role, okRole := ParseRole(call.Role)
		if !okRole {
			return fail(ref, errf(protocol.ErrBadRequest, "unknown role %q", call.Role))
		}
		res := ok(ref)
		has := l.HasRole(role, Address(call.Addr))
		res.HasRole = &has
		return res

	case protocol.OpCreateZone:
		if call.ZoneID == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing zone_id"))
		}
		r, err := l.CreateZone(actor, *call.ZoneID, call.Metadata)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpListZones:
		res := ok(ref)
		for _, id := range l.ZoneList() {
			z := l.zones[id]
			res.Zones = append(res.Zones, protocol.ZoneInfo{ZoneID: z.ZoneID, Metadata: z.Metadata})
		}
		return res

	case protocol.OpGetZone:
		if call.ZoneID == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing zone_id"))
		}
		z, err := l.GetZone(*call.ZoneID)
		if err != nil {
			return fail(ref, err)
		}
		res := ok(ref)
		res.Zone = &protocol.ZoneInfo{ZoneID: z.ZoneID, Metadata: z.Metadata}
		return res

	case protocol.OpPremintBatch:
		if call.ZoneID == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing zone_id"))
		}
		specs := make([]TileSpec, 0, len(call.Tiles))
		for _, t := range call.Tiles {
			specs = append(specs, TileSpec{X: t.X, Y: t.Y, LandType: t.LandType})
		}
		r, err := l.PremintBatch(actor, *call.ZoneID, specs)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpTilesByZone:
		if call.ZoneID == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing zone_id"))
		}
		tiles, err := l.TilesByZone(*call.ZoneID)
		if err != nil {
			return fail(ref, err)
		}
		res := ok(ref)
		for _, t := range tiles {
			res.Tiles = append(res.Tiles, tileInfo(t))
		}
		return res

	case protocol.OpTilesByOwner:
		addr := Address(call.Addr)
		if addr == "" {
			addr = actor
		}
		res := ok(ref)
		for _, t := range l.TilesByOwner(addr) {
			res.Tiles = append(res.Tiles, tileInfo(t))
		}
		return res

	case protocol.OpTilesByID:
		res := ok(ref)
		for _, lu := range l.TilesByID(call.TokenIDs) {
			out := protocol.TileLookup{TokenID: lu.TokenID, Found: lu.Found}
			if lu.Found {
				out.Tile = tileInfo(lu.Tile)
			}
			res.Lookups = append(res.Lookups, out)
		}
		return res

	case protocol.OpOwnerOf:
		if call.TokenID == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing token_id"))
		}
		owner, err := l.OwnerOf(*call.TokenID)
		if err != nil {
			return fail(ref, err)
		}
		res := ok(ref)
		res.Owner = string(owner)
		return res

	case protocol.OpTransferOwnership:
		if call.TokenID == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing token_id"))
		}
		r, err := l.TransferOwnership(actor, *call.TokenID, Address(call.To))
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpSetOperatorApproval:
		if call.Approved == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing approved"))
		}
		r, err := l.SetOperatorApproval(actor, Address(call.Operator), *call.Approved)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpSetPricePerTile:
		if call.Price == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing price"))
		}
		r, err := l.SetPricePerTile(actor, *call.Price)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpSetWallets:
		wallets := make([]Address, 0, len(call.Wallets))
		for _, w := range call.Wallets {
			wallets = append(wallets, Address(w))
		}
		r, err := l.SetWallets(actor, wallets)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpBatchPurchase:
		r, err := l.BatchPurchase(actor, call.TokenIDs)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpWithdraw:
		r, err := l.Withdraw(actor)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpBalanceOf:
		addr := Address(call.Addr)
		if addr == "" {
			addr = actor
		}
		res := ok(ref)
		bal := l.gateway.BalanceOf(addr)
		res.Balance = &bal
		return res

	case protocol.OpAllowance:
		owner := Address(call.Owner)
		if owner == "" {
			owner = actor
		}
		res := ok(ref)
		allow := l.gateway.Allowance(owner, Address(call.Spender))
		res.Allowance = &allow
		return res

	case protocol.OpApprove:
		if call.Amount == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing amount"))
		}
		r, err := l.Approve(actor, Address(call.Spender), *call.Amount)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)

	case protocol.OpTransfer:
		if call.Amount == nil {
			return fail(ref, errf(protocol.ErrBadRequest, "missing amount"))
		}
		r, err := l.TransferToken(actor, Address(call.To), *call.Amount)
		if err != nil {
			return fail(ref, err)
		}
		return committed(ref, r)
	}
	return fail(ref, errf(protocol.ErrBadRequest, "unknown op %q", call.Op))
}
