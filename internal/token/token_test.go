package token

import (
	"math"
	"reflect"
	"testing"

	"multiverse.land/internal/ledger"
)

const (
	alice = ledger.Address("0x00000000000000000000000000000000000000aa")
	bob   = ledger.Address("0x00000000000000000000000000000000000000bb")
	carol = ledger.Address("0x00000000000000000000000000000000000000cc")
)

func TestMintAndTransfer(t *testing.T) {
	tok := New("Multiverse", PolicyDecrement)

	if err := tok.Mint(alice, 1000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Transfer(alice, bob, 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tok.BalanceOf(alice) != 600 || tok.BalanceOf(bob) != 400 {
		t.Fatalf("balances = %d / %d", tok.BalanceOf(alice), tok.BalanceOf(bob))
	}

	if err := tok.Transfer(alice, bob, 601); err == nil {
		t.Fatalf("overdraft should fail")
	}
	if tok.BalanceOf(alice) != 600 {
		t.Fatalf("failed transfer moved funds")
	}
}

func TestMintOverflow(t *testing.T) {
	tok := New("Multiverse", PolicyDecrement)
	if err := tok.Mint(alice, math.MaxUint64); err != nil {
		t.Fatalf("mint max: %v", err)
	}
	if err := tok.Mint(alice, 1); err == nil {
		t.Fatalf("overflow mint should fail")
	}
}

func TestTransferFromDecrementPolicy(t *testing.T) {
	tok := New("Multiverse", PolicyDecrement)
	_ = tok.Mint(alice, 1000)
	_ = tok.Approve(alice, bob, 500)

	if err := tok.TransferFrom(alice, bob, 300); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if tok.Allowance(alice, bob) != 200 {
		t.Fatalf("allowance = %d, want 200", tok.Allowance(alice, bob))
	}
	if tok.BalanceOf(alice) != 700 || tok.BalanceOf(bob) != 300 {
		t.Fatalf("balances = %d / %d", tok.BalanceOf(alice), tok.BalanceOf(bob))
	}

	if err := tok.TransferFrom(alice, bob, 300); err == nil {
		t.Fatalf("pull beyond allowance should fail")
	}
	if tok.BalanceOf(bob) != 300 || tok.Allowance(alice, bob) != 200 {
		t.Fatalf("failed pull changed state")
	}
}

func TestTransferFromZeroWithoutApproval(t *testing.T) {
	for _, policy := range []Policy{PolicyDecrement, PolicyUnlimited} {
		tok := New("Multiverse", policy)
		_ = tok.Mint(alice, 1000)

		// carol never approved anyone; a zero pull must be a clean no-op.
		if err := tok.TransferFrom(carol, bob, 0); err != nil {
			t.Fatalf("%s: zero pull: %v", policy, err)
		}
		if tok.BalanceOf(carol) != 0 || tok.BalanceOf(bob) != 0 {
			t.Fatalf("%s: zero pull moved funds", policy)
		}
		if tok.Allowance(carol, bob) != 0 {
			t.Fatalf("%s: zero pull created allowance", policy)
		}
	}
}

func TestTransferFromUnlimitedPolicy(t *testing.T) {
	tok := New("Multiverse", PolicyUnlimited)
	_ = tok.Mint(alice, 1000)
	_ = tok.Approve(alice, bob, MaxAllowance)

	for i := 0; i < 3; i++ {
		if err := tok.TransferFrom(alice, bob, 100); err != nil {
			t.Fatalf("pull %d: %v", i, err)
		}
	}
	if tok.Allowance(alice, bob) != MaxAllowance {
		t.Fatalf("standing approval was decremented to %d", tok.Allowance(alice, bob))
	}

	// Finite approvals still decrement under UNLIMITED.
	_ = tok.Approve(alice, carol, 150)
	if err := tok.TransferFrom(alice, carol, 100); err != nil {
		t.Fatalf("finite pull: %v", err)
	}
	if tok.Allowance(alice, carol) != 50 {
		t.Fatalf("finite allowance = %d, want 50", tok.Allowance(alice, carol))
	}
}

func TestTransferFromChecksBalance(t *testing.T) {
	tok := New("Multiverse", PolicyDecrement)
	_ = tok.Mint(alice, 100)
	_ = tok.Approve(alice, bob, 1000)

	if err := tok.TransferFrom(alice, bob, 500); err == nil {
		t.Fatalf("pull beyond balance should fail")
	}
	if tok.Allowance(alice, bob) != 1000 {
		t.Fatalf("failed pull consumed allowance")
	}
}

func TestApproveReplaces(t *testing.T) {
	tok := New("Multiverse", PolicyDecrement)
	_ = tok.Approve(alice, bob, 500)
	_ = tok.Approve(alice, bob, 20)
	if tok.Allowance(alice, bob) != 20 {
		t.Fatalf("allowance = %d, want 20", tok.Allowance(alice, bob))
	}
}

func TestParsePolicy(t *testing.T) {
	if _, ok := ParsePolicy("DECREMENT"); !ok {
		t.Fatalf("DECREMENT should parse")
	}
	if _, ok := ParsePolicy("UNLIMITED"); !ok {
		t.Fatalf("UNLIMITED should parse")
	}
	if _, ok := ParsePolicy("unlimited"); ok {
		t.Fatalf("policies are uppercase")
	}
}

func TestTokenSnapshotRoundtrip(t *testing.T) {
	tok := New("Multiverse", PolicyUnlimited)
	_ = tok.Mint(alice, 1000)
	_ = tok.Mint(bob, 5)
	_ = tok.Approve(alice, bob, MaxAllowance)
	_ = tok.Approve(bob, carol, 42)
	_ = tok.Approve(carol, alice, 0) // zero allowances are dropped

	snap := tok.ExportToken()
	if len(snap.Balances) != 2 || len(snap.Allowances) != 2 {
		t.Fatalf("export = %d balances, %d allowances", len(snap.Balances), len(snap.Allowances))
	}

	restored := New("Multiverse", PolicyDecrement)
	if err := restored.ImportToken(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.Policy() != PolicyUnlimited {
		t.Fatalf("policy after import = %s", restored.Policy())
	}
	if restored.BalanceOf(alice) != 1000 || restored.Allowance(bob, carol) != 42 {
		t.Fatalf("state lost in roundtrip")
	}
	if !reflect.DeepEqual(restored.ExportToken(), snap) {
		t.Fatalf("re-export differs")
	}

	bad := snap
	bad.Policy = "WHATEVER"
	if err := restored.ImportToken(bad); err == nil {
		t.Fatalf("unknown policy should be rejected")
	}
}
