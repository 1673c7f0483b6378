package ledger

import (
	"testing"

	"multiverse.land/internal/protocol"
)

func TestCreateAndGetZone(t *testing.T) {
	l, _ := newTestLedger(t)

	if _, err := l.CreateZone(testDeployer, 0, "ipfs://genesis"); err != nil {
		t.Fatalf("create zone 0: %v", err)
	}
	z, err := l.GetZone(0)
	if err != nil {
		t.Fatalf("get zone 0: %v", err)
	}
	if z.Metadata != "ipfs://genesis" {
		t.Fatalf("zone metadata = %q", z.Metadata)
	}

	_, err = l.GetZone(7)
	wantCode(t, err, protocol.ErrZoneNotFound)
}

func TestCreateZoneDuplicate(t *testing.T) {
	l, _ := newTestLedger(t)

	if _, err := l.CreateZone(testDeployer, 3, "first"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := l.CreateZone(testDeployer, 3, "second")
	wantCode(t, err, protocol.ErrDuplicateZone)

	z, _ := l.GetZone(3)
	if z.Metadata != "first" {
		t.Fatalf("duplicate create must not overwrite metadata, got %q", z.Metadata)
	}
}

func TestCreateZoneAuthorization(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreateZone(testStranger, 0, "nope")
	wantCode(t, err, protocol.ErrUnauthorized)

	// MANAGER alone is enough.
	if _, err := l.GrantRole(testDeployer, RoleManager, testBuyer); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := l.CreateZone(testBuyer, 1, "manager-made"); err != nil {
		t.Fatalf("manager create: %v", err)
	}
}

func TestZoneListCreationOrder(t *testing.T) {
	l, _ := newTestLedger(t)

	for _, id := range []uint32{5, 1, 9} {
		if _, err := l.CreateZone(testDeployer, id, ""); err != nil {
			t.Fatalf("create %d: %v", id, err)
		}
	}
	got := l.ZoneList()
	want := []uint32{5, 1, 9}
	if len(got) != len(want) {
		t.Fatalf("zone list = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("zone list = %v, want %v", got, want)
		}
	}
}
