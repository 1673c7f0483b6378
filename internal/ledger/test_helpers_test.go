package ledger

import (
	"fmt"
	"testing"
)

const (
	testDeployer    = Address("0x00000000000000000000000000000000000000a1")
	testMarketplace = Address("0x00000000000000000000000000000000000000b1")
	testWallet      = Address("0x00000000000000000000000000000000000000c1")
	testBuyer       = Address("0x00000000000000000000000000000000000000d1")
	testStranger    = Address("0x00000000000000000000000000000000000000e1")
)

// memGateway is an in-memory decrement-allowance payment gateway for
// ledger tests. failTransferTo makes Transfer toward that address fail,
// to exercise unwind paths.
type memGateway struct {
	balances   map[Address]uint64
	allowances map[Address]map[Address]uint64

	failTransferTo Address
}

func newMemGateway() *memGateway {
	return &memGateway{
		balances:   map[Address]uint64{},
		allowances: map[Address]map[Address]uint64{},
	}
}

func (g *memGateway) BalanceOf(addr Address) uint64 { return g.balances[addr] }

func (g *memGateway) Allowance(owner, spender Address) uint64 {
	return g.allowances[owner][spender]
}

func (g *memGateway) Approve(owner, spender Address, amount uint64) error {
	set := g.allowances[owner]
	if set == nil {
		set = map[Address]uint64{}
		g.allowances[owner] = set
	}
	set[spender] = amount
	return nil
}

func (g *memGateway) Transfer(from, to Address, amount uint64) error {
	if to == g.failTransferTo {
		return fmt.Errorf("gateway refused transfer to %s", to)
	}
	if g.balances[from] < amount {
		return fmt.Errorf("balance of %s below %d", from, amount)
	}
	g.balances[from] -= amount
	g.balances[to] += amount
	return nil
}

func (g *memGateway) TransferFrom(owner, spender Address, amount uint64) error {
	if g.allowances[owner][spender] < amount {
		return fmt.Errorf("allowance of %s toward %s below %d", owner, spender, amount)
	}
	if err := g.Transfer(owner, spender, amount); err != nil {
		return err
	}
	if amount > 0 {
		g.allowances[owner][spender] -= amount
	}
	return nil
}

func (g *memGateway) Mint(to Address, amount uint64) error {
	g.balances[to] += amount
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *memGateway) {
	t.Helper()
	g := newMemGateway()
	l, err := New(Config{
		ID:           "test_market",
		Deployer:     testDeployer,
		Marketplace:  testMarketplace,
		PricePerTile: 250,
		Wallets:      []Address{testWallet},
	}, g)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l, g
}

// premintGrid creates a zone and premints a (w+1)x(h+1) grid in it,
// returning the fresh token ids.
func premintGrid(t *testing.T, l *Ledger, zoneID uint32, w, h int) []uint64 {
	t.Helper()
	if _, err := l.CreateZone(testDeployer, zoneID, "ipfs://zone-meta"); err != nil {
		t.Fatalf("create zone %d: %v", zoneID, err)
	}
	var specs []TileSpec
	for x := 0; x <= w; x++ {
		for y := 0; y <= h; y++ {
			specs = append(specs, TileSpec{X: x, Y: y, LandType: 0})
		}
	}
	r, err := l.PremintBatch(testDeployer, zoneID, specs)
	if err != nil {
		t.Fatalf("premint %dx%d grid: %v", w+1, h+1, err)
	}
	return r.TokenIDs
}

// buyTiles funds the buyer exactly, approves the marketplace, and runs
// the purchase.
func buyTiles(t *testing.T, l *Ledger, g *memGateway, buyer Address, ids []uint64) Receipt {
	t.Helper()
	total := l.PricePerTile() * uint64(len(ids))
	if err := g.Mint(buyer, total); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := g.Approve(buyer, l.Marketplace(), total); err != nil {
		t.Fatalf("approve: %v", err)
	}
	r, err := l.BatchPurchase(buyer, ids)
	if err != nil {
		t.Fatalf("batch purchase: %v", err)
	}
	return r
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("want error code %s, got nil", code)
	}
	if got := CodeOf(err); got != code {
		t.Fatalf("want error code %s, got %s (%v)", code, got, err)
	}
}
