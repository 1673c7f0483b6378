package ledger

import "errors"

// ReceiptEntry is the journal form of a committed operation.
type ReceiptEntry struct {
	Seq     uint64         `json:"seq"`
	Tx      string         `json:"tx"`
	Op      string         `json:"op"`
	Actor   string         `json:"actor"`
	Details map[string]any `json:"details,omitempty"`
}

// AuditEntry records every attempt, committed or rejected. Rejected
// attempts carry the error code and no tx.
type AuditEntry struct {
	Seq    uint64 `json:"seq"` // last committed seq at the time of the attempt
	Actor  string `json:"actor"`
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Tx     string `json:"tx,omitempty"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type ReceiptLogger interface {
	WriteReceipt(entry ReceiptEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

func (l *Ledger) audit(e AuditEntry) {
	if l.auditLogger == nil {
		return
	}
	_ = l.auditLogger.WriteAudit(e)
}

// reject audits a failed attempt and passes the error through unchanged.
func (l *Ledger) reject(op string, actor Address, err error) error {
	var e *Error
	code, reason := "", err.Error()
	if errors.As(err, &e) {
		code, reason = e.Code, e.Msg
	}
	l.audit(AuditEntry{Seq: l.seq.Load(), Actor: string(actor), Op: op, OK: false, Code: code, Reason: reason})
	return err
}
