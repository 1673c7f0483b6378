package ledger

import (
	"testing"

	"multiverse.land/internal/protocol"
)

type memJournal struct {
	receipts []ReceiptEntry
	audits   []AuditEntry
}

func (m *memJournal) WriteReceipt(e ReceiptEntry) error {
	m.receipts = append(m.receipts, e)
	return nil
}

func (m *memJournal) WriteAudit(e AuditEntry) error {
	m.audits = append(m.audits, e)
	return nil
}

func TestReceiptSequencing(t *testing.T) {
	l, _ := newTestLedger(t)
	j := &memJournal{}
	l.SetReceiptLogger(j)
	l.SetAuditLogger(j)

	r1, err := l.CreateZone(testDeployer, 0, "")
	if err != nil {
		t.Fatalf("create zone: %v", err)
	}
	r2, err := l.PremintBatch(testDeployer, 0, []TileSpec{{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("premint: %v", err)
	}

	if r1.Seq != 1 || r2.Seq != 2 {
		t.Fatalf("seqs = %d, %d; want 1, 2", r1.Seq, r2.Seq)
	}
	if !r1.Tx.Valid() || !r2.Tx.Valid() {
		t.Fatalf("malformed tx hashes: %q %q", r1.Tx, r2.Tx)
	}
	if r1.Tx == r2.Tx {
		t.Fatalf("distinct operations share tx %s", r1.Tx)
	}

	if len(j.receipts) != 2 {
		t.Fatalf("journal has %d receipts, want 2", len(j.receipts))
	}
	if j.receipts[0].Op != protocol.OpCreateZone || j.receipts[1].Op != protocol.OpPremintBatch {
		t.Fatalf("journal ops = %s, %s", j.receipts[0].Op, j.receipts[1].Op)
	}
	if j.receipts[1].Tx != string(r2.Tx) {
		t.Fatalf("journal tx %s != receipt tx %s", j.receipts[1].Tx, r2.Tx)
	}
}

func TestAuditRecordsRejections(t *testing.T) {
	l, _ := newTestLedger(t)
	j := &memJournal{}
	l.SetAuditLogger(j)

	if _, err := l.CreateZone(testStranger, 0, ""); err == nil {
		t.Fatalf("stranger create should fail")
	}
	if _, err := l.CreateZone(testDeployer, 0, ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(j.audits) != 2 {
		t.Fatalf("audit trail has %d entries, want 2", len(j.audits))
	}
	rej, okEntry := j.audits[0], j.audits[1]
	if rej.OK || rej.Code != protocol.ErrUnauthorized || rej.Tx != "" {
		t.Fatalf("rejection entry = %+v", rej)
	}
	if rej.Reason == "" {
		t.Fatalf("rejection entry carries no reason")
	}
	if !okEntry.OK || okEntry.Tx == "" || okEntry.Seq != 1 {
		t.Fatalf("commit entry = %+v", okEntry)
	}
}

func TestTxHashDeterminism(t *testing.T) {
	a := txHash("m", 1, protocol.OpCreateZone, testDeployer, map[string]any{"zone_id": 0})
	b := txHash("m", 1, protocol.OpCreateZone, testDeployer, map[string]any{"zone_id": 0})
	c := txHash("m", 2, protocol.OpCreateZone, testDeployer, map[string]any{"zone_id": 0})
	if a != b {
		t.Fatalf("same inputs hash differently: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different seqs share hash %s", a)
	}
	if !a.Valid() {
		t.Fatalf("hash %q is malformed", a)
	}
}

func TestAddressFormats(t *testing.T) {
	if !testDeployer.Valid() || !ZeroAddress.Valid() {
		t.Fatalf("fixture addresses should validate")
	}
	fresh := NewAddress()
	if !fresh.Valid() {
		t.Fatalf("generated address %q is malformed", fresh)
	}
	for _, bad := range []Address{"", "0x", "0xABC", Address("0x" + "g0000000000000000000000000000000000000000"[:40])} {
		if bad.Valid() {
			t.Fatalf("%q should not validate", bad)
		}
	}
}
