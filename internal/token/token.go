// Package token is the in-process fungible payment token backing the
// marketplace: balances, allowances, and the pull-payment transfer the
// purchase engine settles against.
package token

import (
	"fmt"
	"math"
	"sort"

	"multiverse.land/internal/ledger"
	"multiverse.land/internal/persistence/snapshot"
)

// Policy controls what happens to an allowance when it is spent.
type Policy string

const (
	// PolicyDecrement consumes allowance on every TransferFrom.
	PolicyDecrement Policy = "DECREMENT"
	// PolicyUnlimited treats an allowance set to MaxAllowance as a
	// standing approval that is never decremented. Smaller allowances
	// still decrement.
	PolicyUnlimited Policy = "UNLIMITED"
)

func ParsePolicy(s string) (Policy, bool) {
	switch Policy(s) {
	case PolicyDecrement, PolicyUnlimited:
		return Policy(s), true
	}
	return "", false
}

// MaxAllowance is the sentinel for "approve everything, forever".
const MaxAllowance = uint64(math.MaxUint64)

type Token struct {
	name   string
	policy Policy

	balances   map[ledger.Address]uint64
	allowances map[ledger.Address]map[ledger.Address]uint64
}

func New(name string, policy Policy) *Token {
	if policy == "" {
		policy = PolicyUnlimited
	}
	return &Token{
		name:       name,
		policy:     policy,
		balances:   map[ledger.Address]uint64{},
		allowances: map[ledger.Address]map[ledger.Address]uint64{},
	}
}

func (t *Token) Name() string   { return t.name }
func (t *Token) Policy() Policy { return t.policy }

func (t *Token) BalanceOf(addr ledger.Address) uint64 { return t.balances[addr] }

func (t *Token) Allowance(owner, spender ledger.Address) uint64 {
	return t.allowances[owner][spender]
}

func (t *Token) Approve(owner, spender ledger.Address, amount uint64) error {
	set := t.allowances[owner]
	if set == nil {
		set = map[ledger.Address]uint64{}
		t.allowances[owner] = set
	}
	set[spender] = amount
	return nil
}

func (t *Token) Mint(to ledger.Address, amount uint64) error {
	if t.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("mint overflows balance of %s", to)
	}
	t.balances[to] += amount
	return nil
}

// Transfer moves the owner's own funds; no allowance involved.
func (t *Token) Transfer(from, to ledger.Address, amount uint64) error {
	if t.balances[from] < amount {
		return fmt.Errorf("balance of %s below %d", from, amount)
	}
	if t.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("transfer overflows balance of %s", to)
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

// TransferFrom pulls owner funds to the spender. Balance and allowance
// are re-checked here regardless of any caller pre-checks; the whole
// move either happens or does not.
func (t *Token) TransferFrom(owner, spender ledger.Address, amount uint64) error {
	allowed := t.allowances[owner][spender]
	if allowed < amount {
		return fmt.Errorf("allowance of %s toward %s below %d", owner, spender, amount)
	}
	if t.balances[owner] < amount {
		return fmt.Errorf("balance of %s below %d", owner, amount)
	}
	if t.balances[spender] > math.MaxUint64-amount {
		return fmt.Errorf("transfer overflows balance of %s", spender)
	}
	// A zero pull touches no allowance entry; the inner map may not
	// exist for an owner who never approved anyone.
	if amount > 0 && !(t.policy == PolicyUnlimited && allowed == MaxAllowance) {
		t.allowances[owner][spender] = allowed - amount
	}
	t.balances[owner] -= amount
	t.balances[spender] += amount
	return nil
}

// ExportToken captures balances and allowances in deterministic order.
func (t *Token) ExportToken() snapshot.TokenV1 {
	out := snapshot.TokenV1{Policy: string(t.policy)}
	for addr, amt := range t.balances {
		if amt == 0 {
			continue
		}
		out.Balances = append(out.Balances, snapshot.BalanceV1{Addr: string(addr), Amount: amt})
	}
	sort.Slice(out.Balances, func(i, j int) bool { return out.Balances[i].Addr < out.Balances[j].Addr })
	for owner, set := range t.allowances {
		for spender, amt := range set {
			if amt == 0 {
				continue
			}
			out.Allowances = append(out.Allowances, snapshot.AllowanceV1{
				Owner:   string(owner),
				Spender: string(spender),
				Amount:  amt,
			})
		}
	}
	sort.Slice(out.Allowances, func(i, j int) bool {
		if out.Allowances[i].Owner != out.Allowances[j].Owner {
			return out.Allowances[i].Owner < out.Allowances[j].Owner
		}
		return out.Allowances[i].Spender < out.Allowances[j].Spender
	})
	return out
}

func (t *Token) ImportToken(s snapshot.TokenV1) error {
	policy, ok := ParsePolicy(s.Policy)
	if !ok {
		return fmt.Errorf("unknown allowance policy %q", s.Policy)
	}
	balances := make(map[ledger.Address]uint64, len(s.Balances))
	for _, b := range s.Balances {
		balances[ledger.Address(b.Addr)] = b.Amount
	}
	allowances := map[ledger.Address]map[ledger.Address]uint64{}
	for _, a := range s.Allowances {
		set := allowances[ledger.Address(a.Owner)]
		if set == nil {
			set = map[ledger.Address]uint64{}
			allowances[ledger.Address(a.Owner)] = set
		}
		set[ledger.Address(a.Spender)] = a.Amount
	}
	t.policy = policy
	t.balances = balances
	t.allowances = allowances
	return nil
}
