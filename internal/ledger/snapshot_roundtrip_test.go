package ledger

import (
	"reflect"
	"testing"
)

func TestSnapshotRoundtrip(t *testing.T) {
	l, g := newTestLedger(t)

	// Build up a representative state.
	ids := premintGrid(t, l, 0, 2, 2)
	if _, err := l.CreateZone(testDeployer, 5, "ipfs://district-five"); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	if _, err := l.PremintBatch(testDeployer, 5, []TileSpec{{X: 0, Y: 0, LandType: 2}}); err != nil {
		t.Fatalf("premint: %v", err)
	}
	buyTiles(t, l, g, testBuyer, ids[:3])
	if _, err := l.GrantRole(testDeployer, RoleManager, testStranger); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := l.SetOperatorApproval(testBuyer, testStranger, true); err != nil {
		t.Fatalf("approve operator: %v", err)
	}
	if _, err := l.SetPricePerTile(testDeployer, 300); err != nil {
		t.Fatalf("set price: %v", err)
	}

	snap := l.ExportSnapshot()
	if snap.Header.Seq != l.Seq() {
		t.Fatalf("snapshot seq %d != ledger seq %d", snap.Header.Seq, l.Seq())
	}

	restored, _ := newTestLedger(t)
	if err := restored.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	if !reflect.DeepEqual(restored.ExportSnapshot(), snap) {
		t.Fatalf("re-export differs from imported snapshot")
	}
	if restored.Seq() != l.Seq() {
		t.Fatalf("restored seq %d != %d", restored.Seq(), l.Seq())
	}
	if restored.PricePerTile() != 300 {
		t.Fatalf("restored price = %d", restored.PricePerTile())
	}
	owner, err := restored.OwnerOf(ids[0])
	if err != nil || owner != testBuyer {
		t.Fatalf("restored owner of %d = %s, %v", ids[0], owner, err)
	}
	if !restored.IsOperator(testBuyer, testStranger) {
		t.Fatalf("operator approval lost in roundtrip")
	}
	if !restored.HasRole(RoleManager, testStranger) {
		t.Fatalf("role grant lost in roundtrip")
	}

	// Registry invariants survive: fresh premints continue the counter
	// and the coordinate index still rejects collisions.
	r, err := restored.PremintBatch(testDeployer, 5, []TileSpec{{X: 1, Y: 0}})
	if err != nil {
		t.Fatalf("premint after restore: %v", err)
	}
	if r.TokenIDs[0] != uint64(len(ids))+1 {
		t.Fatalf("token counter after restore = %d, want %d", r.TokenIDs[0], len(ids)+1)
	}
	if _, err := restored.PremintBatch(testDeployer, 0, []TileSpec{{X: 0, Y: 0}}); err == nil {
		t.Fatalf("restored coordinate index should reject (0,0) in zone 0")
	}
}

func TestSnapshotImportRejectsMismatch(t *testing.T) {
	l, _ := newTestLedger(t)
	snap := l.ExportSnapshot()

	snap.Header.Version = 2
	if err := l.ImportSnapshot(snap); err == nil {
		t.Fatalf("version 2 should be rejected")
	}

	snap = l.ExportSnapshot()
	snap.Header.LedgerID = "someone_else"
	if err := l.ImportSnapshot(snap); err == nil {
		t.Fatalf("foreign ledger id should be rejected")
	}
}

func TestSnapshotImportIntegrityChecks(t *testing.T) {
	l, _ := newTestLedger(t)
	premintGrid(t, l, 0, 1, 0)

	snap := l.ExportSnapshot()
	snap.Tiles[1].ZoneID = 99
	if err := l.ImportSnapshot(snap); err == nil {
		t.Fatalf("tile referencing a missing zone should be rejected")
	}

	snap = l.ExportSnapshot()
	snap.Tiles[1].TokenID = snap.Tiles[0].TokenID
	if err := l.ImportSnapshot(snap); err == nil {
		t.Fatalf("repeated token id should be rejected")
	}

	snap = l.ExportSnapshot()
	snap.Counters.NextTokenID = 0
	if err := l.ImportSnapshot(snap); err == nil {
		t.Fatalf("token beyond counter should be rejected")
	}
}
