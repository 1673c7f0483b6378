package ledger

import (
	"crypto/rand"
	"encoding/hex"
)

// Address is an opaque account identifier: "0x" + 40 lowercase hex (42 chars).
// The registry does no validation beyond the format.
type Address string

// ZeroAddress is the unowned sentinel: tiles carry it until first sale.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

func (a Address) Valid() bool {
	if len(a) != 42 || a[0] != '0' || a[1] != 'x' {
		return false
	}
	for i := 2; i < len(a); i++ {
		c := a[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NewAddress generates a fresh random address. Used for session identities
// and test fixtures; the registry itself never mints addresses.
func NewAddress() Address {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return Address("0x" + hex.EncodeToString(b[:]))
}

// TxHash identifies one committed mutating operation:
// "0x" + 64 lowercase hex (66 chars).
type TxHash string

func (t TxHash) Valid() bool {
	if len(t) != 66 || t[0] != '0' || t[1] != 'x' {
		return false
	}
	for i := 2; i < len(t); i++ {
		c := t[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
