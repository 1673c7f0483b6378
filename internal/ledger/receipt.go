package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type Payout struct {
	Wallet Address `json:"wallet"`
	Amount uint64  `json:"amount"`
}

// Receipt identifies one committed mutating operation. Tx is stable for
// a given ledger id and operation sequence, so replaying a journal
// reproduces identical receipts.
type Receipt struct {
	Tx    TxHash  `json:"tx"`
	Seq   uint64  `json:"seq"`
	Op    string  `json:"op"`
	Actor Address `json:"actor"`

	TokenIDs []uint64 `json:"token_ids,omitempty"`
	Total    uint64   `json:"total,omitempty"`
	Payouts  []Payout `json:"payouts,omitempty"`
}

func txHash(ledgerID string, seq uint64, op string, actor Address, details map[string]any) TxHash {
	b, _ := json.Marshal(details)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%s|%s", ledgerID, seq, op, actor, b)))
	return TxHash("0x" + hex.EncodeToString(sum[:]))
}

// commit seals a mutating operation: assigns the next sequence number,
// derives the transaction hash, and feeds the receipt journal and audit
// trail. Callers must have fully validated and applied the mutation.
func (l *Ledger) commit(op string, actor Address, details map[string]any) Receipt {
	seq := l.seq.Add(1)
	r := Receipt{
		Tx:    txHash(l.cfg.ID, seq, op, actor, details),
		Seq:   seq,
		Op:    op,
		Actor: actor,
	}
	if l.receiptLogger != nil {
		_ = l.receiptLogger.WriteReceipt(ReceiptEntry{
			Seq:     seq,
			Tx:      string(r.Tx),
			Op:      op,
			Actor:   string(actor),
			Details: details,
		})
	}
	l.audit(AuditEntry{Seq: seq, Actor: string(actor), Op: op, OK: true, Tx: string(r.Tx)})
	l.maybeSnapshot(seq)
	return r
}

func (l *Ledger) maybeSnapshot(seq uint64) {
	if l.snapshotSink == nil || l.snapshotEvery == 0 || seq%l.snapshotEvery != 0 {
		return
	}
	select {
	case l.snapshotSink <- l.ExportSnapshot():
	default:
		// Snapshot writer is behind; skip rather than stall the loop.
	}
}
