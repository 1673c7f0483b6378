package ledger

import "multiverse.land/internal/protocol"

func (l *Ledger) PricePerTile() uint64 { return l.pricePerTile }

func (l *Ledger) Wallets() []Address {
	return append([]Address(nil), l.wallets...)
}

func (l *Ledger) SetPricePerTile(actor Address, price uint64) (Receipt, error) {
	if !l.anyRole(actor, RoleDev, RoleManager) {
		return Receipt{}, l.reject(protocol.OpSetPricePerTile, actor,
			errf(protocol.ErrUnauthorized, "%s lacks DEV or MANAGER", actor))
	}
	l.pricePerTile = price
	return l.commit(protocol.OpSetPricePerTile, actor, map[string]any{"price": price}), nil
}

func (l *Ledger) SetWallets(actor Address, wallets []Address) (Receipt, error) {
	if !l.anyRole(actor, RoleAdmin, RoleManager) {
		return Receipt{}, l.reject(protocol.OpSetWallets, actor,
			errf(protocol.ErrUnauthorized, "%s lacks ADMIN or MANAGER", actor))
	}
	if len(wallets) == 0 {
		return Receipt{}, l.reject(protocol.OpSetWallets, actor,
			errf(protocol.ErrBadRequest, "empty wallet list"))
	}
	for _, w := range wallets {
		if !w.Valid() {
			return Receipt{}, l.reject(protocol.OpSetWallets, actor,
				errf(protocol.ErrBadRequest, "bad wallet %q", w))
		}
	}
	l.wallets = append([]Address(nil), wallets...)
	return l.commit(protocol.OpSetWallets, actor, map[string]any{"wallets": wallets}), nil
}

// mulCheck multiplies with overflow detection.
func mulCheck(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

// BatchPurchase sells every listed tile to the buyer in one indivisible
// step. Checks run strictly in order — tile state, price, funds — before
// any effect; the single payment pull precedes the ownership writes so a
// gateway rejection leaves the registry untouched, and the writes
// themselves are pre-validated pure map updates that cannot fail.
func (l *Ledger) BatchPurchase(buyer Address, tokenIDs []uint64) (Receipt, error) {
	if len(tokenIDs) == 0 {
		return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
			errf(protocol.ErrBadRequest, "empty purchase batch"))
	}
	if !buyer.Valid() {
		return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
			errf(protocol.ErrBadRequest, "bad buyer %q", buyer))
	}

	// 1. Every id exists, is unsold, and appears once.
	seen := make(map[uint64]struct{}, len(tokenIDs))
	for _, id := range tokenIDs {
		if _, dup := seen[id]; dup {
			return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
				errf(protocol.ErrDuplicateInBatch, "token %d repeated in batch", id))
		}
		seen[id] = struct{}{}
		t, ok := l.tiles[id]
		if !ok {
			return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
				errf(protocol.ErrUnknownTile, "token %d never minted", id))
		}
		if t.Owner != ZeroAddress {
			return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
				errf(protocol.ErrTileAlreadySold, "token %d already owned by %s", id, t.Owner))
		}
	}

	// 2. Total price, overflow-checked.
	total, ok := mulCheck(l.pricePerTile, uint64(len(tokenIDs)))
	if !ok {
		return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
			errf(protocol.ErrPriceOverflow, "price %d x %d tiles overflows", l.pricePerTile, len(tokenIDs)))
	}

	// 3. Buyer funds and allowance toward the marketplace.
	if l.gateway.BalanceOf(buyer) < total {
		return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
			errf(protocol.ErrInsufficientFunds, "buyer balance below %d", total))
	}
	if l.gateway.Allowance(buyer, l.cfg.Marketplace) < total {
		return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
			errf(protocol.ErrInsufficientAllowance, "allowance toward marketplace below %d", total))
	}

	// 4. One payment pull for the whole batch. The gateway re-checks
	// atomically; a rejection here means no state changed anywhere.
	if err := l.gateway.TransferFrom(buyer, l.cfg.Marketplace, total); err != nil {
		return Receipt{}, l.reject(protocol.OpBatchPurchase, buyer,
			errf(protocol.ErrTransferRejected, "payment pull failed: %v", err))
	}

	// 5. Ownership writes.
	for _, id := range tokenIDs {
		l.tiles[id].Owner = buyer
	}

	r := l.commit(protocol.OpBatchPurchase, buyer, map[string]any{
		"token_ids": tokenIDs, "total": total,
	})
	r.TokenIDs = append([]uint64(nil), tokenIDs...)
	r.Total = total
	return r, nil
}

// Withdraw sweeps the marketplace's full token balance to the configured
// wallets: equal shares, remainder to the first wallet.
func (l *Ledger) Withdraw(actor Address) (Receipt, error) {
	if !l.anyRole(actor, RoleAdmin, RoleManager) {
		return Receipt{}, l.reject(protocol.OpWithdraw, actor,
			errf(protocol.ErrUnauthorized, "%s lacks ADMIN or MANAGER", actor))
	}
	if len(l.wallets) == 0 {
		return Receipt{}, l.reject(protocol.OpWithdraw, actor,
			errf(protocol.ErrBadRequest, "no wallets configured"))
	}
	balance := l.gateway.BalanceOf(l.cfg.Marketplace)
	if balance == 0 {
		return Receipt{}, l.reject(protocol.OpWithdraw, actor,
			errf(protocol.ErrNothingToWithdraw, "marketplace balance is zero"))
	}

	n := uint64(len(l.wallets))
	share := balance / n
	payouts := make([]Payout, len(l.wallets))
	for i, w := range l.wallets {
		amt := share
		if i == 0 {
			amt += balance % n
		}
		payouts[i] = Payout{Wallet: w, Amount: amt}
	}

	for i, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		if err := l.gateway.Transfer(l.cfg.Marketplace, p.Wallet, p.Amount); err != nil {
			// Unwind the payouts already made so the call stays all-or-nothing.
			// Each return moves funds the marketplace held at entry: the wallet's
			// balance covers the amount and the marketplace cannot overflow, so
			// the compensating transfer cannot fail.
			for j := 0; j < i; j++ {
				if payouts[j].Amount > 0 {
					_ = l.gateway.Transfer(payouts[j].Wallet, l.cfg.Marketplace, payouts[j].Amount)
				}
			}
			return Receipt{}, l.reject(protocol.OpWithdraw, actor,
				errf(protocol.ErrTransferRejected, "payout to %s failed: %v", p.Wallet, err))
		}
	}

	r := l.commit(protocol.OpWithdraw, actor, map[string]any{
		"total": balance, "payouts": payouts,
	})
	r.Total = balance
	r.Payouts = payouts
	return r, nil
}

// Approve routes a token approval through the ledger so it is sequenced
// and receipted like every other mutating operation.
func (l *Ledger) Approve(actor, spender Address, amount uint64) (Receipt, error) {
	if !spender.Valid() {
		return Receipt{}, l.reject(protocol.OpApprove, actor,
			errf(protocol.ErrBadRequest, "bad spender %q", spender))
	}
	if err := l.gateway.Approve(actor, spender, amount); err != nil {
		return Receipt{}, l.reject(protocol.OpApprove, actor,
			errf(protocol.ErrTransferRejected, "approve failed: %v", err))
	}
	r := l.commit(protocol.OpApprove, actor, map[string]any{
		"spender": spender, "amount": amount,
	})
	r.Total = amount
	return r, nil
}

// TransferToken moves the actor's own token balance.
func (l *Ledger) TransferToken(actor, to Address, amount uint64) (Receipt, error) {
	if !to.Valid() {
		return Receipt{}, l.reject(protocol.OpTransfer, actor,
			errf(protocol.ErrBadRequest, "bad recipient %q", to))
	}
	if err := l.gateway.Transfer(actor, to, amount); err != nil {
		return Receipt{}, l.reject(protocol.OpTransfer, actor,
			errf(protocol.ErrTransferRejected, "transfer failed: %v", err))
	}
	r := l.commit(protocol.OpTransfer, actor, map[string]any{
		"to": to, "amount": amount,
	})
	r.Total = amount
	return r, nil
}

// Mint issues token supply through a gateway that supports it. Gated on
// ADMIN; the in-process token is the only expected implementer.
func (l *Ledger) Mint(actor, to Address, amount uint64) (Receipt, error) {
	if !l.HasRole(RoleAdmin, actor) {
		return Receipt{}, l.reject(protocol.OpMint, actor,
			errf(protocol.ErrUnauthorized, "%s lacks ADMIN", actor))
	}
	m, ok := l.gateway.(Minter)
	if !ok {
		return Receipt{}, l.reject(protocol.OpMint, actor,
			errf(protocol.ErrBadRequest, "gateway cannot mint"))
	}
	if !to.Valid() {
		return Receipt{}, l.reject(protocol.OpMint, actor,
			errf(protocol.ErrBadRequest, "bad recipient %q", to))
	}
	if err := m.Mint(to, amount); err != nil {
		return Receipt{}, l.reject(protocol.OpMint, actor,
			errf(protocol.ErrTransferRejected, "mint failed: %v", err))
	}
	r := l.commit(protocol.OpMint, actor, map[string]any{"to": to, "amount": amount})
	r.Total = amount
	return r, nil
}
