package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleState() StateV1 {
	return StateV1{
		Header: Header{
			Version:  1,
			LedgerID: "test_market",
			Seq:      42,
		},
		Deployer:     "0x00000000000000000000000000000000000000a1",
		Marketplace:  "0x00000000000000000000000000000000000000b1",
		PricePerTile: 250,
		Wallets:      []string{"0x00000000000000000000000000000000000000c1"},
		Roles: []RoleGrantV1{
			{Role: "ADMIN", Addr: "0x00000000000000000000000000000000000000a1"},
			{Role: "CONTRACT", Addr: "0x00000000000000000000000000000000000000b1"},
		},
		Zones: []ZoneV1{
			{ZoneID: 1, Metadata: "genesis"},
			{ZoneID: 7, Metadata: "outer rim"},
		},
		Tiles: []TileV1{
			{TokenID: 1, ZoneID: 1, X: 0, Y: 0, LandType: 0, Owner: "0x0000000000000000000000000000000000000000"},
			{TokenID: 2, ZoneID: 1, X: -3, Y: 5, LandType: 2, Owner: "0x00000000000000000000000000000000000000d1"},
			{TokenID: 3, ZoneID: 7, X: 10, Y: 10, LandType: 1, Owner: "0x0000000000000000000000000000000000000000"},
		},
		Operators: []OperatorV1{
			{Owner: "0x00000000000000000000000000000000000000d1", Operator: "0x00000000000000000000000000000000000000e1"},
		},
		Token: &TokenV1{
			Policy: "UNLIMITED",
			Balances: []BalanceV1{
				{Addr: "0x00000000000000000000000000000000000000d1", Amount: 750},
			},
			Allowances: []AllowanceV1{
				{Owner: "0x00000000000000000000000000000000000000d1", Spender: "0x00000000000000000000000000000000000000b1", Amount: 500},
			},
		},
		Counters: CountersV1{NextTokenID: 4},
	}
}

func TestSnapshot_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "42.snap.zst")

	want := sampleState()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSnapshot_ReadMissing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSnapshot_ReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}
